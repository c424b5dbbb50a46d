package usecase

import (
	"context"

	"guru-chat/internal/pkg/chat/application/stream"
	directory "guru-chat/internal/repository/port"
)

type WatchInboxInput struct {
	UserID string
}

// WatchInboxUseCase joins the live conversation set with directory lookups.
type WatchInboxUseCase struct {
	Conversations *SubscribeConversationsUseCase
	Directory     directory.UserDirectory
}

func NewWatchInboxUseCase(conversations *SubscribeConversationsUseCase, dir directory.UserDirectory) *WatchInboxUseCase {
	return &WatchInboxUseCase{Conversations: conversations, Directory: dir}
}

func (uc *WatchInboxUseCase) Execute(ctx context.Context, in WatchInboxInput) (*stream.Inbox, error) {
	sub, err := uc.Conversations.Execute(ctx, SubscribeConversationsInput{UserID: in.UserID})
	if err != nil {
		return nil, err
	}
	return stream.NewInbox(ctx, in.UserID, sub, uc.Directory), nil
}
