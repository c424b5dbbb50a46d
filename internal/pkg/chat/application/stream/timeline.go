package stream

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	chat "guru-chat/internal/pkg/chat/application/domain"
)

// Timeline is the viewer-side model of one conversation. It shows optimistic local
// messages until the store confirms them, then swaps each placeholder for the stored
// message by ClientMessageID.
//
// The server never builds one. It is the reference client model that the socket
// contract is written against: sends echo client_message_id and message snapshots
// carry it, which is all a client needs to reconcile the way Timeline does.
type Timeline struct {
	mu        sync.Mutex
	confirmed []chat.Message
	pending   []chat.Message // insertion order
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// AddPending records a local message with no server timestamp. The returned
// placeholder carries the ClientMessageID to send along with the text.
func (t *Timeline) AddPending(conversationID, senderID, text string) chat.Message {
	cid := uuid.NewString()
	m := chat.Message{
		ID:              cid,
		ConversationID:  conversationID,
		SenderID:        senderID,
		Text:            strings.TrimSpace(text),
		ClientMessageID: &cid,
	}
	t.mu.Lock()
	t.pending = append(t.pending, m)
	t.mu.Unlock()
	return m
}

// Apply replaces the confirmed set with a store snapshot and retires matching placeholders.
func (t *Timeline) Apply(snapshot []chat.Message) {
	confirmed := make([]chat.Message, len(snapshot))
	copy(confirmed, snapshot)
	sort.SliceStable(confirmed, func(i, j int) bool { return chat.MessageLess(confirmed[i], confirmed[j]) })

	acked := make(map[string]struct{}, len(confirmed))
	for _, m := range confirmed {
		if m.ClientMessageID != nil {
			acked[*m.ClientMessageID] = struct{}{}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.confirmed = confirmed
	kept := t.pending[:0]
	for _, p := range t.pending {
		if _, ok := acked[*p.ClientMessageID]; !ok {
			kept = append(kept, p)
		}
	}
	t.pending = kept
}

// Fail drops a placeholder whose send was rejected.
func (t *Timeline) Fail(clientMessageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pending {
		if *p.ClientMessageID == clientMessageID {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Messages returns confirmed messages in display order followed by pending ones.
func (t *Timeline) Messages() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]chat.Message, 0, len(t.confirmed)+len(t.pending))
	out = append(out, t.confirmed...)
	out = append(out, t.pending...)
	return out
}

func (t *Timeline) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
