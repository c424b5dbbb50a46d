package usecase

import (
	"context"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/realtime/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message.
// The conversation is derived from the two participants and created on first send.
type SendMessageInput struct {
	SenderID        string
	RecipientID     string
	Text            string
	ClientMessageID *string
}

// Notifier is told about every delivered message. It must not block the caller.
type Notifier interface {
	Notify(msg chat.Message, recipientID string)
}

// SendMessageUseCase handles the SendMessage application service
// Hexagonal: depends on repository port, returns domain entity
// One class per use case (own file)
type SendMessageUseCase struct {
	Repo     repository.ChatRepository
	Notifier Notifier
	events   publisher
}

func NewSendMessageUseCase(repo repository.ChatRepository, feed port.ChangeFeed, notifier Notifier) *SendMessageUseCase {
	return &SendMessageUseCase{
		Repo:     repo,
		Notifier: notifier,
		events:   publisher{feed: feed},
	}
}

// Execute appends the message, then updates the summary and the recipient's unread counter.
// Stores with transactions commit all of it or nothing. Otherwise the message write
// decides the outcome and the follow-up writes are best effort.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	if err := chat.ValidatePair(in.SenderID, in.RecipientID); err != nil {
		return nil, err
	}

	msg, err := chat.NewMessage(chat.Message{
		ConversationID:  chat.CanonicalID(in.SenderID, in.RecipientID),
		SenderID:        in.SenderID,
		Text:            in.Text,
		ClientMessageID: in.ClientMessageID,
	})
	if err != nil {
		return nil, err
	}

	var saved chat.Message
	if tx, ok := uc.Repo.(repository.Transactor); ok {
		err = tx.WithinTx(ctx, func(ctx context.Context, repo repository.ChatRepository) error {
			s, err := repo.SaveMessage(ctx, *msg)
			if err != nil {
				return err
			}
			saved = s
			for _, w := range deliveryWrites(repo, s, in.RecipientID) {
				if err := w.run(ctx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, transient(err)
		}
	} else {
		saved, err = uc.Repo.SaveMessage(ctx, *msg)
		if err != nil {
			return nil, transient(err)
		}
		for _, w := range deliveryWrites(uc.Repo, saved, in.RecipientID) {
			if err := w.run(ctx); err != nil {
				logger.Error().Err(err).
					Str("conversation_id", saved.ConversationID).
					Str("message_id", saved.ID).
					Str("step", w.name).
					Msg("send: secondary write failed")
			}
		}
	}

	uc.events.messages(ctx, chat.ChangeAdded, saved)
	uc.events.conversationChanged(ctx, saved.ConversationID)

	if uc.Notifier != nil {
		uc.Notifier.Notify(saved, in.RecipientID)
	}
	return &saved, nil
}

type deliveryWrite struct {
	name string
	run  func(ctx context.Context) error
}

// deliveryWrites are the summary and counter updates that follow a stored message.
func deliveryWrites(repo repository.ChatRepository, m chat.Message, recipientID string) []deliveryWrite {
	conv := chat.NewConversation(m.SenderID, recipientID)
	conv.LastMessage = m.Text
	conv.UpdatedAt = m.CreatedAt

	return []deliveryWrite{
		{name: "upsert_conversation", run: func(ctx context.Context) error {
			return repo.UpsertConversation(ctx, conv)
		}},
		{name: "seed_sender_unread", run: func(ctx context.Context) error {
			return repo.EnsureUnread(ctx, conv.ID, m.SenderID)
		}},
		{name: "increment_recipient_unread", run: func(ctx context.Context) error {
			return repo.IncrementUnread(ctx, conv.ID, recipientID, 1)
		}},
	}
}
