package realtime

import (
	"context"
	"sync"

	"guru-chat/internal/infrastructure/realtime/port"
)

const defaultFeedBuffer = 256

// Feed is an in-process topic fan-out. Each subscriber owns a bounded buffer; when it is
// full the event is dropped for that subscriber and its Lagged channel fires so it can resync.
type Feed struct {
	mu     sync.RWMutex
	topics map[string]map[*feedSubscription]struct{}
	buffer int
}

// NewFeed constructs an empty Feed. buffer <= 0 selects the default per-subscriber buffer.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = defaultFeedBuffer
	}
	return &Feed{
		topics: make(map[string]map[*feedSubscription]struct{}),
		buffer: buffer,
	}
}

var _ port.ChangeFeed = (*Feed)(nil)

// Publish delivers events to the current subscribers of their topics. It never blocks.
func (f *Feed) Publish(_ context.Context, events ...port.Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ev := range events {
		for sub := range f.topics[ev.Topic] {
			select {
			case sub.events <- ev:
			default:
				select {
				case sub.lagged <- struct{}{}:
				default:
				}
			}
		}
	}
	return nil
}

func (f *Feed) Subscribe(topic string) port.Subscription {
	sub := &feedSubscription{
		feed:   f,
		topic:  topic,
		events: make(chan port.Event, f.buffer),
		lagged: make(chan struct{}, 1),
	}
	f.mu.Lock()
	subs := f.topics[topic]
	if subs == nil {
		subs = make(map[*feedSubscription]struct{})
		f.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

// Subscribers returns the number of live subscriptions on topic.
func (f *Feed) Subscribers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.topics[topic])
}

func (f *Feed) remove(sub *feedSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.topics[sub.topic]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(f.topics, sub.topic)
	}
}

type feedSubscription struct {
	feed   *Feed
	topic  string
	events chan port.Event
	lagged chan struct{}
	once   sync.Once
}

func (s *feedSubscription) Events() <-chan port.Event { return s.events }
func (s *feedSubscription) Lagged() <-chan struct{}   { return s.lagged }

// Close unregisters first so no publisher can send on the channel after it is closed.
func (s *feedSubscription) Close() {
	s.once.Do(func() {
		s.feed.remove(s)
		close(s.events)
	})
}
