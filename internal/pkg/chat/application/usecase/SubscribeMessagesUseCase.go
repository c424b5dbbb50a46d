package usecase

import (
	"context"

	"guru-chat/internal/infrastructure/realtime/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
	"guru-chat/internal/pkg/chat/application/stream"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

// SubscribeMessagesInput identifies the conversation a viewer opens.
type SubscribeMessagesInput struct {
	ConversationID string
	ViewerID       string
}

// SubscribeMessagesUseCase opens a live, ordered view of one conversation's messages.
// Only participants may subscribe. The conversation does not need to exist yet.
type SubscribeMessagesUseCase struct {
	Repo repository.ChatRepository
	Feed port.ChangeFeed
}

func NewSubscribeMessagesUseCase(repo repository.ChatRepository, feed port.ChangeFeed) *SubscribeMessagesUseCase {
	return &SubscribeMessagesUseCase{Repo: repo, Feed: feed}
}

func (uc *SubscribeMessagesUseCase) Execute(ctx context.Context, in SubscribeMessagesInput) (*stream.Subscription[chat.Message], error) {
	if _, err := chat.ResolveParticipant(in.ConversationID, in.ViewerID); err != nil {
		return nil, err
	}
	return stream.Subscribe(ctx, uc.Feed, messageSource(uc.Repo, in.ConversationID))
}
