package usecase

import (
	"context"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/realtime/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

type MarkReadInput struct {
	ConversationID string
	UserID         string
}

// MarkReadUseCase resets the reader's unread counter to zero. Last writer wins;
// the peer's counter is never touched.
type MarkReadUseCase struct {
	Repo   repository.ChatRepository
	events publisher
}

func NewMarkReadUseCase(repo repository.ChatRepository, feed port.ChangeFeed) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo, events: publisher{feed: feed}}
}

// Execute reports whether a counter was reset. A conversation with no messages yet is a no-op.
func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (bool, error) {
	if _, err := chat.ResolveParticipant(in.ConversationID, in.UserID); err != nil {
		return false, err
	}

	reset, err := uc.Repo.ResetUnread(ctx, in.ConversationID, in.UserID)
	if err != nil {
		logger.Error().Err(err).
			Str("conversation_id", in.ConversationID).
			Str("user_id", in.UserID).
			Msg("mark read: reset unread failed")
		return false, transient(err)
	}
	if !reset {
		return false, nil
	}

	uc.events.conversationChanged(ctx, in.ConversationID)
	return true, nil
}
