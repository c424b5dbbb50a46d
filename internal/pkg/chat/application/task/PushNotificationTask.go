package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guru-chat/internal/infrastructure/logger"
	qport "guru-chat/internal/infrastructure/queue/port"
)

// PushNotificationTaskType is the queue task name for a new-message push.
const PushNotificationTaskType = "chat:push_notification"

// NotificationsQueue is the asynq queue push tasks are routed to.
const NotificationsQueue = "notifications"

// PushNotificationTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type PushNotificationTaskPayload struct {
	RecipientID       string `json:"recipientId"`
	MessageText       string `json:"messageText"`
	SenderDisplayName string `json:"senderDisplayName"`
}

// PushGateway delivers one notification to a recipient's devices.
type PushGateway interface {
	Send(ctx context.Context, recipientID, text, senderName string) error
}

// EnqueuePushNotification schedules a single delivery attempt. Pushes are not retried.
func EnqueuePushNotification(ctx context.Context, client qport.Client, p PushNotificationTaskPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("push task: encode: %w", err)
	}
	return client.Enqueue(ctx, qport.Task{Type: PushNotificationTaskType, Payload: b}, qport.EnqueueOption{
		Queue:   NotificationsQueue,
		NoRetry: true,
		Timeout: 30 * time.Second,
	})
}

// RegisterPushNotificationTask binds the task handler to the provided server.
// Gateway failures are logged and the task is dropped.
func RegisterPushNotificationTask(srv qport.Server, gateway PushGateway) {
	srv.Register(PushNotificationTaskType, func(ctx context.Context, t qport.Task) error {
		var p PushNotificationTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying cannot fix it
			return fmt.Errorf("push task: decode: %v: %w", err, qport.ErrSkipRetry)
		}
		if p.RecipientID == "" {
			return fmt.Errorf("push task: missing recipient: %w", qport.ErrSkipRetry)
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := gateway.Send(ctx, p.RecipientID, p.MessageText, p.SenderDisplayName); err != nil {
			logger.Warn().Err(err).Str("recipient_id", p.RecipientID).Msg("push notification dropped")
			return errors.Join(err, qport.ErrSkipRetry)
		}
		return nil
	})
}
