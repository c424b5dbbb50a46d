package usecase

import (
	"context"

	chat "guru-chat/internal/pkg/chat/application/domain"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

const (
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 200
)

// ListMessagesInput carries parameters to fetch one page of a conversation's history.
type ListMessagesInput struct {
	ConversationID string
	ViewerID       string
	Limit          int
	Offset         int
}

// ListMessagesUseCase fetches messages for a given conversation
// Hexagonal: depends only on repository port
type ListMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewListMessagesUseCase(repo repository.ChatRepository) *ListMessagesUseCase {
	return &ListMessagesUseCase{Repo: repo}
}

// Execute returns messages ascending by creation time honoring limit/offset.
func (uc *ListMessagesUseCase) Execute(ctx context.Context, in ListMessagesInput) ([]chat.Message, error) {
	if _, err := chat.ResolveParticipant(in.ConversationID, in.ViewerID); err != nil {
		return nil, err
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = DefaultMessagePageSize
	case limit > MaxMessagePageSize:
		limit = MaxMessagePageSize
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	msgs, err := uc.Repo.GetMessagesByConversation(ctx, in.ConversationID, limit, offset)
	if err != nil {
		return nil, transient(err)
	}
	return msgs, nil
}
