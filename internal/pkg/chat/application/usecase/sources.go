package usecase

import (
	"context"
	"errors"

	chat "guru-chat/internal/pkg/chat/application/domain"
	"guru-chat/internal/pkg/chat/application/stream"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

func messageSource(repo repository.ChatRepository, conversationID string) stream.Source[chat.Message] {
	return stream.Source[chat.Message]{
		Topic: chat.MessagesTopic(conversationID),
		Load: func(ctx context.Context) ([]chat.Message, error) {
			msgs, err := repo.GetMessagesByConversation(ctx, conversationID, 0, 0)
			if err != nil {
				return nil, transient(err)
			}
			return msgs, nil
		},
		Decode: func(b []byte) (stream.Change[chat.Message], bool) {
			ev, err := chat.DecodeChangeEvent(b)
			if err != nil || ev.Message == nil || ev.Message.ConversationID != conversationID {
				return stream.Change[chat.Message]{}, false
			}
			return stream.Change[chat.Message]{Type: ev.Type, Item: *ev.Message}, true
		},
		Key:  func(m chat.Message) string { return m.ID },
		Less: chat.MessageLess,
	}
}

func conversationSource(repo repository.ChatRepository, userID string) stream.Source[chat.Conversation] {
	return stream.Source[chat.Conversation]{
		Topic: chat.ConversationsTopic(userID),
		Load: func(ctx context.Context) ([]chat.Conversation, error) {
			convs, err := repo.ListConversations(ctx, userID)
			if err != nil {
				return nil, transient(err)
			}
			return convs, nil
		},
		Decode: func(b []byte) (stream.Change[chat.Conversation], bool) {
			ev, err := chat.DecodeChangeEvent(b)
			if err != nil || ev.ConversationID == "" {
				return stream.Change[chat.Conversation]{}, false
			}
			if _, err := chat.ResolveParticipant(ev.ConversationID, userID); err != nil {
				return stream.Change[chat.Conversation]{}, false
			}
			return stream.Change[chat.Conversation]{Type: ev.Type, Item: chat.Conversation{ID: ev.ConversationID}}, true
		},
		Refresh: func(ctx context.Context, id string) (chat.Conversation, bool, error) {
			conv, err := repo.GetConversation(ctx, id)
			if errors.Is(err, chat.ErrConversationNotFound) {
				return chat.Conversation{}, false, nil
			}
			if err != nil {
				return chat.Conversation{}, false, transient(err)
			}
			return *conv, true, nil
		},
		Key:  func(c chat.Conversation) string { return c.ID },
		Less: chat.ConversationLess,
	}
}
