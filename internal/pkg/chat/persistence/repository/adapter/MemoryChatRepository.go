package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	chat "guru-chat/internal/pkg/chat/application/domain"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

// MemoryChatRepository keeps conversations and messages in process memory.
// It has no multi-record transactions, so callers fall back to ordered writes.
type MemoryChatRepository struct {
	mu            sync.Mutex
	conversations map[string]*chat.Conversation
	unread        map[string]map[string]int          // conversationID -> userID -> count
	messages      map[string]map[string]chat.Message // conversationID -> messageID -> message
	now           func() time.Time
	last          time.Time
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[string]*chat.Conversation),
		unread:        make(map[string]map[string]int),
		messages:      make(map[string]map[string]chat.Message),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

// WithClock replaces the time source. Timestamps stay strictly increasing regardless.
func (r *MemoryChatRepository) WithClock(now func() time.Time) *MemoryChatRepository {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
	return r
}

func (r *MemoryChatRepository) stampLocked() time.Time {
	ts := r.now()
	if !ts.After(r.last) {
		ts = r.last.Add(time.Microsecond)
	}
	r.last = ts
	return ts
}

func (r *MemoryChatRepository) SaveMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m.ID = uuid.NewString()
	m.CreatedAt = r.stampLocked()
	if m.ClientMessageID != nil {
		cid := *m.ClientMessageID
		m.ClientMessageID = &cid
	}
	log := r.messages[m.ConversationID]
	if log == nil {
		log = make(map[string]chat.Message)
		r.messages[m.ConversationID] = log
	}
	log[m.ID] = m
	return m, nil
}

func (r *MemoryChatRepository) GetMessagesByConversation(_ context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	r.mu.Lock()
	msgs := make([]chat.Message, 0, len(r.messages[conversationID]))
	for _, m := range r.messages[conversationID] {
		msgs = append(msgs, m)
	}
	r.mu.Unlock()

	sort.Slice(msgs, func(i, j int) bool { return chat.MessageLess(msgs[i], msgs[j]) })
	if offset < 0 {
		offset = 0
	}
	if offset >= len(msgs) {
		return []chat.Message{}, nil
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (r *MemoryChatRepository) ListMessageIDs(_ context.Context, conversationID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.messages[conversationID]))
	for id := range r.messages[conversationID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryChatRepository) DeleteMessages(_ context.Context, conversationID string, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log := r.messages[conversationID]
	var n int64
	for _, id := range ids {
		if _, ok := log[id]; ok {
			delete(log, id)
			n++
		}
	}
	if len(log) == 0 {
		delete(r.messages, conversationID)
	}
	return n, nil
}

func (r *MemoryChatRepository) UpsertConversation(_ context.Context, c chat.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.conversations[c.ID]
	if !ok {
		rec := chat.Conversation{
			ID:           c.ID,
			Participants: c.Participants,
			LastMessage:  c.LastMessage,
			UpdatedAt:    c.UpdatedAt,
		}
		r.conversations[c.ID] = &rec
		return nil
	}
	if !c.UpdatedAt.Before(existing.UpdatedAt) {
		existing.LastMessage = c.LastMessage
		existing.UpdatedAt = c.UpdatedAt
	}
	return nil
}

func (r *MemoryChatRepository) GetConversation(_ context.Context, conversationID string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	out := r.snapshotLocked(rec)
	return &out, nil
}

func (r *MemoryChatRepository) ListConversations(_ context.Context, userID string) ([]chat.Conversation, error) {
	r.mu.Lock()
	out := make([]chat.Conversation, 0)
	for _, rec := range r.conversations {
		if rec.HasParticipant(userID) {
			out = append(out, r.snapshotLocked(rec))
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return chat.ConversationLess(out[i], out[j]) })
	return out, nil
}

func (r *MemoryChatRepository) snapshotLocked(rec *chat.Conversation) chat.Conversation {
	out := *rec
	out.UnreadCount = make(map[string]int, 2)
	for uid, n := range r.unread[rec.ID] {
		out.UnreadCount[uid] = n
	}
	return out
}

func (r *MemoryChatRepository) DeleteConversation(_ context.Context, conversationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversationID]; !ok {
		return false, nil
	}
	delete(r.conversations, conversationID)
	return true, nil
}

func (r *MemoryChatRepository) counterLocked(conversationID string) map[string]int {
	counters := r.unread[conversationID]
	if counters == nil {
		counters = make(map[string]int, 2)
		r.unread[conversationID] = counters
	}
	return counters
}

func (r *MemoryChatRepository) EnsureUnread(_ context.Context, conversationID string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	counters := r.counterLocked(conversationID)
	if _, ok := counters[userID]; !ok {
		counters[userID] = 0
	}
	return nil
}

func (r *MemoryChatRepository) IncrementUnread(_ context.Context, conversationID string, userID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counterLocked(conversationID)[userID] += delta
	return nil
}

func (r *MemoryChatRepository) ResetUnread(_ context.Context, conversationID string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counters := r.unread[conversationID]
	if _, ok := counters[userID]; !ok {
		return false, nil
	}
	counters[userID] = 0
	return true, nil
}

func (r *MemoryChatRepository) DeleteUnread(_ context.Context, conversationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.unread[conversationID]))
	delete(r.unread, conversationID)
	return n, nil
}
