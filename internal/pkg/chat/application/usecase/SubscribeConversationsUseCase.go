package usecase

import (
	"context"

	"guru-chat/internal/infrastructure/realtime/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
	"guru-chat/internal/pkg/chat/application/stream"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

type SubscribeConversationsInput struct {
	UserID string
}

// SubscribeConversationsUseCase opens the live set of conversations a user takes part in,
// ordered by most recent activity.
type SubscribeConversationsUseCase struct {
	Repo repository.ChatRepository
	Feed port.ChangeFeed
}

func NewSubscribeConversationsUseCase(repo repository.ChatRepository, feed port.ChangeFeed) *SubscribeConversationsUseCase {
	return &SubscribeConversationsUseCase{Repo: repo, Feed: feed}
}

func (uc *SubscribeConversationsUseCase) Execute(ctx context.Context, in SubscribeConversationsInput) (*stream.Subscription[chat.Conversation], error) {
	if err := chat.ValidateUserID("user_id", in.UserID); err != nil {
		return nil, err
	}
	return stream.Subscribe(ctx, uc.Feed, conversationSource(uc.Repo, in.UserID))
}
