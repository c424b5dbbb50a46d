package usecase

import (
	"context"

	"guru-chat/internal/infrastructure/logger"
	chat "guru-chat/internal/pkg/chat/application/domain"
	"guru-chat/internal/pkg/chat/application/stream"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
	directory "guru-chat/internal/repository/port"
)

type ListConversationsInput struct {
	UserID string
}

// ListConversationsUseCase returns the user's inbox once, most recent first.
// A failing directory degrades to placeholders instead of failing the read.
type ListConversationsUseCase struct {
	Repo      repository.ChatRepository
	Directory directory.UserDirectory
}

func NewListConversationsUseCase(repo repository.ChatRepository, dir directory.UserDirectory) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Directory: dir}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]stream.InboxEntry, error) {
	if err := chat.ValidateUserID("user_id", in.UserID); err != nil {
		return nil, err
	}
	convs, err := uc.Repo.ListConversations(ctx, in.UserID)
	if err != nil {
		return nil, transient(err)
	}

	users := make(map[string]directory.User)
	if uc.Directory != nil && len(convs) > 0 {
		peers := make([]string, 0, len(convs))
		for _, c := range convs {
			if p, ok := c.Peer(in.UserID); ok {
				peers = append(peers, p)
			}
		}
		found, err := uc.Directory.GetUsersByIDs(ctx, peers)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", in.UserID).Msg("list conversations: directory lookup failed")
		}
		for _, u := range found {
			users[u.ID] = u
		}
	}
	return stream.MergeInbox(in.UserID, convs, users), nil
}
