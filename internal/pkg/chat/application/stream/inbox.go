package stream

import (
	"context"
	"sort"
	"sync"
	"time"

	"guru-chat/internal/infrastructure/logger"
	chat "guru-chat/internal/pkg/chat/application/domain"
	directory "guru-chat/internal/repository/port"
)

const lookupTimeout = 5 * time.Second

// InboxEntry is one row of "who I am chatting with".
type InboxEntry struct {
	Conversation chat.Conversation `json:"conversation"`
	Peer         directory.User    `json:"peer"`
	// Placeholder is set while no directory entry is known for Peer.
	Placeholder bool `json:"placeholder"`
	Unread      int  `json:"unread"`
}

// MergeInbox joins the viewer's conversations with directory entries, most recent first.
// Conversations without a directory entry get a placeholder peer; users without a
// conversation are omitted.
func MergeInbox(viewerID string, convs []chat.Conversation, users map[string]directory.User) []InboxEntry {
	sorted := make([]chat.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.HasParticipant(viewerID) {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return chat.ConversationLess(sorted[i], sorted[j]) })

	entries := make([]InboxEntry, 0, len(sorted))
	for _, c := range sorted {
		peerID, _ := c.Peer(viewerID)
		e := InboxEntry{Conversation: c, Unread: c.Unread(viewerID)}
		if u, ok := users[peerID]; ok {
			e.Peer = u
		} else {
			e.Peer = directory.User{ID: peerID, DisplayName: peerID}
			e.Placeholder = true
		}
		entries = append(entries, e)
	}
	return entries
}

// Inbox keeps MergeInbox current against a live conversation set and asynchronous
// directory lookups. Either source changing yields a new list.
type Inbox struct {
	viewerID string
	sub      *Subscription[chat.Conversation]
	dir      directory.UserDirectory
	ctx      context.Context

	users     map[string]directory.User
	requested map[string]struct{}
	convs     []chat.Conversation

	lookups chan lookupResult
	out     chan []InboxEntry
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

type lookupResult struct {
	ids   []string
	users []directory.User
	err   error
}

// NewInbox takes ownership of sub; closing the inbox closes it.
func NewInbox(ctx context.Context, viewerID string, sub *Subscription[chat.Conversation], dir directory.UserDirectory) *Inbox {
	in := &Inbox{
		viewerID:  viewerID,
		sub:       sub,
		dir:       dir,
		ctx:       context.WithoutCancel(ctx),
		users:     make(map[string]directory.User),
		requested: make(map[string]struct{}),
		lookups:   make(chan lookupResult),
		out:       make(chan []InboxEntry, 1),
		done:      make(chan struct{}),
	}
	in.wg.Add(1)
	go in.run()
	return in
}

// Updates delivers merged lists until Close.
func (in *Inbox) Updates() <-chan []InboxEntry { return in.out }

// Close is idempotent. Pending directory lookups are abandoned and awaited.
func (in *Inbox) Close() {
	in.once.Do(func() {
		close(in.done)
		in.sub.Close()
		in.wg.Wait()
	drain:
		for {
			select {
			case <-in.out:
			default:
				break drain
			}
		}
		close(in.out)
	})
}

func (in *Inbox) run() {
	defer in.wg.Done()
	updates := in.sub.Updates()
	for {
		select {
		case <-in.done:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			in.convs = snap.Items
			in.requestMissing()
		case res := <-in.lookups:
			in.absorb(res)
		}
		if !in.emit(MergeInbox(in.viewerID, in.convs, in.users)) {
			return
		}
	}
}

func (in *Inbox) requestMissing() {
	if in.dir == nil {
		return
	}
	missing := make([]string, 0)
	for _, c := range in.convs {
		peerID, ok := c.Peer(in.viewerID)
		if !ok {
			continue
		}
		if _, known := in.users[peerID]; known {
			continue
		}
		if _, asked := in.requested[peerID]; asked {
			continue
		}
		in.requested[peerID] = struct{}{}
		missing = append(missing, peerID)
	}
	if len(missing) == 0 {
		return
	}

	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		ctx, cancel := context.WithTimeout(in.ctx, lookupTimeout)
		users, err := in.dir.GetUsersByIDs(ctx, missing)
		cancel()
		select {
		case in.lookups <- lookupResult{ids: missing, users: users, err: err}:
		case <-in.done:
		}
	}()
}

func (in *Inbox) absorb(res lookupResult) {
	if res.err != nil {
		logger.Warn().Err(res.err).Strs("ids", res.ids).Msg("inbox: directory lookup failed")
		// allow the next snapshot to ask again
		for _, id := range res.ids {
			delete(in.requested, id)
		}
		return
	}
	for _, u := range res.users {
		in.users[u.ID] = u
	}
	// ids the directory did not return are asked for again on the next snapshot
	for _, id := range res.ids {
		if _, ok := in.users[id]; !ok {
			delete(in.requested, id)
		}
	}
}

func (in *Inbox) emit(entries []InboxEntry) bool {
	select {
	case in.out <- entries:
		return true
	case <-in.done:
		return false
	}
}
