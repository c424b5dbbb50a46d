package notification

import (
	"context"
	"sync"
	"time"

	"guru-chat/internal/infrastructure/logger"
	qport "guru-chat/internal/infrastructure/queue/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
	"guru-chat/internal/pkg/chat/application/task"
	directory "guru-chat/internal/repository/port"
)

const dispatchTimeout = 10 * time.Second

// Trigger turns delivered messages into push notification tasks.
// Dispatch runs off the caller's goroutine and its failures are only logged.
type Trigger struct {
	client    qport.Client
	directory directory.UserDirectory

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewTrigger builds a trigger. dir may be nil, in which case senders are named by id.
func NewTrigger(client qport.Client, dir directory.UserDirectory) *Trigger {
	return &Trigger{client: client, directory: dir}
}

// Notify implements usecase.Notifier.
func (t *Trigger) Notify(msg chat.Message, recipientID string) {
	if recipientID == "" || recipientID == msg.SenderID {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		t.dispatch(ctx, msg, recipientID)
	}()
}

func (t *Trigger) dispatch(ctx context.Context, msg chat.Message, recipientID string) {
	payload := task.PushNotificationTaskPayload{
		RecipientID:       recipientID,
		MessageText:       msg.Text,
		SenderDisplayName: t.senderName(ctx, msg.SenderID),
	}
	if _, err := task.EnqueuePushNotification(ctx, t.client, payload); err != nil {
		logger.Error().Err(err).
			Str("conversation_id", msg.ConversationID).
			Str("message_id", msg.ID).
			Str("recipient_id", recipientID).
			Msg("notification: enqueue failed")
	}
}

func (t *Trigger) senderName(ctx context.Context, senderID string) string {
	if t.directory == nil {
		return senderID
	}
	users, err := t.directory.GetUsersByIDs(ctx, []string{senderID})
	if err != nil {
		logger.Warn().Err(err).Str("user_id", senderID).Msg("notification: sender lookup failed")
		return senderID
	}
	for _, u := range users {
		if u.ID == senderID && u.DisplayName != "" {
			return u.DisplayName
		}
	}
	return senderID
}

// Close stops accepting messages and waits for in-flight dispatches.
func (t *Trigger) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}
