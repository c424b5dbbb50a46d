package stream

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/realtime/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
)

const reloadTimeout = 5 * time.Second

// Change is one keyed mutation applied to a live set.
type Change[T any] struct {
	Type chat.ChangeType `json:"type"`
	Item T               `json:"item"`
}

// Snapshot is the full ordered set after a batch of changes.
// The first snapshot of a subscription and every resync carry no Changes.
type Snapshot[T any] struct {
	Items   []T         `json:"items"`
	Changes []Change[T] `json:"changes,omitempty"`
	Resync  bool        `json:"resync,omitempty"`
}

// Source describes how to build and maintain one live set.
type Source[T any] struct {
	Topic string
	// Load returns the current contents of the set.
	Load func(ctx context.Context) ([]T, error)
	// Decode turns a feed payload into a change. ok=false skips the event.
	Decode func(payload []byte) (change Change[T], ok bool)
	Key    func(T) string
	Less   func(a, b T) bool
	// Refresh, when set, replaces each decoded change with a store read of its key,
	// in feed order. found=false removes the record.
	Refresh func(ctx context.Context, key string) (item T, found bool, err error)
}

func (s Source[T]) validate() error {
	if s.Topic == "" || s.Load == nil || s.Decode == nil || s.Key == nil || s.Less == nil {
		return errors.New("stream: incomplete source")
	}
	return nil
}

// Subscription is a live ordered set backed by a change feed.
type Subscription[T any] struct {
	src   Source[T]
	feed  port.Subscription
	items map[string]T
	gone  map[string]struct{} // removed keys; keyed records are never re-added
	out   chan Snapshot[T]
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	ctx   context.Context
}

// Subscribe attaches to the feed before loading so no change committed after the load is missed.
// Changes that raced the load are applied idempotently by key.
func Subscribe[T any](ctx context.Context, feed port.ChangeFeed, src Source[T]) (*Subscription[T], error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	fs := feed.Subscribe(src.Topic)

	initial, err := src.Load(ctx)
	if err != nil {
		fs.Close()
		return nil, err
	}

	s := &Subscription[T]{
		src:   src,
		feed:  fs,
		items: make(map[string]T, len(initial)),
		gone:  make(map[string]struct{}),
		out:   make(chan Snapshot[T], 1),
		done:  make(chan struct{}),
		ctx:   context.WithoutCancel(ctx),
	}
	s.reset(initial)
	s.out <- Snapshot[T]{Items: s.sorted()}

	s.wg.Add(1)
	go s.pump()
	return s, nil
}

// Updates delivers snapshots until Close. It is closed once Close returns.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] { return s.out }

// Close stops delivery. Safe to call multiple times; no snapshot is observable after it returns.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		close(s.done)
		s.feed.Close()
		s.wg.Wait()
	drain:
		for {
			select {
			case <-s.out:
			default:
				break drain
			}
		}
		close(s.out)
	})
}

func (s *Subscription[T]) pump() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.feed.Lagged():
			if !s.resync() {
				return
			}
		case ev, ok := <-s.feed.Events():
			if !ok {
				return
			}
			changes, ok := s.collect(ev)
			if !ok {
				if !s.resync() {
					return
				}
				continue
			}
			if len(changes) == 0 {
				continue
			}
			if !s.emit(Snapshot[T]{Items: s.sorted(), Changes: changes}) {
				return
			}
		}
	}
}

// collect applies ev and every event already buffered behind it as one batch.
// It reports false when a refresh failed and the set needs a full reload.
func (s *Subscription[T]) collect(first port.Event) ([]Change[T], bool) {
	batch := make([]Change[T], 0, 1)
	decode := func(ev port.Event) {
		if ch, ok := s.src.Decode(ev.Payload); ok {
			batch = append(batch, ch)
		}
	}
	decode(first)
drain:
	for {
		select {
		case ev, ok := <-s.feed.Events():
			if !ok {
				break drain
			}
			decode(ev)
		default:
			break drain
		}
	}

	if s.src.Refresh != nil {
		return s.refresh(batch)
	}
	changes := make([]Change[T], 0, len(batch))
	for _, ch := range batch {
		if ch, ok := s.apply(ch); ok {
			changes = append(changes, ch)
		}
	}
	return changes, true
}

func (s *Subscription[T]) apply(ch Change[T]) (Change[T], bool) {
	key := s.src.Key(ch.Item)
	switch ch.Type {
	case chat.ChangeRemoved:
		s.gone[key] = struct{}{}
		if _, exists := s.items[key]; !exists {
			return Change[T]{}, false
		}
		delete(s.items, key)
	default:
		if _, removed := s.gone[key]; removed {
			return Change[T]{}, false
		}
		s.items[key] = ch.Item
	}
	return ch, true
}

// refresh reads each key of the batch once, in order, and diffs it against the held set.
func (s *Subscription[T]) refresh(batch []Change[T]) ([]Change[T], bool) {
	ctx, cancel := context.WithTimeout(s.ctx, reloadTimeout)
	defer cancel()

	changes := make([]Change[T], 0, len(batch))
	seen := make(map[string]struct{}, len(batch))
	for _, ch := range batch {
		key := s.src.Key(ch.Item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		item, found, err := s.src.Refresh(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("topic", s.src.Topic).Str("key", key).Msg("stream: refresh failed")
			return nil, false
		}
		held, exists := s.items[key]
		switch {
		case found:
			typ := chat.ChangeAdded
			if exists {
				typ = chat.ChangeModified
			}
			s.items[key] = item
			changes = append(changes, Change[T]{Type: typ, Item: item})
		case exists:
			delete(s.items, key)
			changes = append(changes, Change[T]{Type: chat.ChangeRemoved, Item: held})
		}
	}
	return changes, true
}

// resync drops what is buffered and reloads the whole set.
func (s *Subscription[T]) resync() bool {
	for drained := false; !drained; {
		select {
		case _, ok := <-s.feed.Events():
			if !ok {
				return false
			}
		default:
			drained = true
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, reloadTimeout)
	items, err := s.src.Load(ctx)
	cancel()
	if err != nil {
		// keep the current set; the next lag or change will try again
		logger.Warn().Err(err).Str("topic", s.src.Topic).Msg("stream: resync failed")
		return true
	}
	s.reset(items)
	return s.emit(Snapshot[T]{Items: s.sorted(), Resync: true})
}

func (s *Subscription[T]) emit(snap Snapshot[T]) bool {
	select {
	case s.out <- snap:
		return true
	case <-s.done:
		return false
	}
}

func (s *Subscription[T]) reset(items []T) {
	s.items = make(map[string]T, len(items))
	for _, it := range items {
		s.items[s.src.Key(it)] = it
	}
}

func (s *Subscription[T]) sorted() []T {
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return s.src.Less(out[i], out[j]) })
	return out
}
