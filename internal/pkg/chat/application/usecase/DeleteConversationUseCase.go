package usecase

import (
	"context"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/realtime/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

// DeleteBatchSize bounds the number of message ids removed per store call.
const DeleteBatchSize = 500

type DeleteConversationInput struct {
	ConversationID string
	RequesterID    string
}

type DeleteConversationResult struct {
	MessagesDeleted     int64
	CountersDeleted     int64
	ConversationDeleted bool
}

// DeleteConversationUseCase removes a conversation and everything under it.
// Children go first so an interrupted run leaves at worst an empty summary, and
// rerunning converges. Deleting what is already gone is success.
type DeleteConversationUseCase struct {
	Repo      repository.ChatRepository
	BatchSize int
	events    publisher
}

func NewDeleteConversationUseCase(repo repository.ChatRepository, feed port.ChangeFeed) *DeleteConversationUseCase {
	return &DeleteConversationUseCase{
		Repo:      repo,
		BatchSize: DeleteBatchSize,
		events:    publisher{feed: feed},
	}
}

func (uc *DeleteConversationUseCase) Execute(ctx context.Context, in DeleteConversationInput) (DeleteConversationResult, error) {
	var res DeleteConversationResult
	if _, err := chat.ResolveParticipant(in.ConversationID, in.RequesterID); err != nil {
		return res, err
	}
	batch := uc.BatchSize
	if batch <= 0 || batch > DeleteBatchSize {
		batch = DeleteBatchSize
	}

	ids, err := uc.Repo.ListMessageIDs(ctx, in.ConversationID)
	if err != nil {
		return res, transient(err)
	}
	removed := make([]chat.Message, 0, len(ids))
	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		n, err := uc.Repo.DeleteMessages(ctx, in.ConversationID, ids[start:end])
		if err != nil {
			logger.Error().Err(err).
				Str("conversation_id", in.ConversationID).
				Int64("deleted_so_far", res.MessagesDeleted).
				Msg("delete conversation: message batch failed")
			uc.events.messages(ctx, chat.ChangeRemoved, removed...)
			return res, transient(err)
		}
		res.MessagesDeleted += n
		for _, id := range ids[start:end] {
			removed = append(removed, chat.Message{ID: id, ConversationID: in.ConversationID})
		}
	}
	uc.events.messages(ctx, chat.ChangeRemoved, removed...)

	res.CountersDeleted, err = uc.Repo.DeleteUnread(ctx, in.ConversationID)
	if err != nil {
		return res, transient(err)
	}
	res.ConversationDeleted, err = uc.Repo.DeleteConversation(ctx, in.ConversationID)
	if err != nil {
		return res, transient(err)
	}

	uc.events.conversation(ctx, chat.ChangeRemoved, in.ConversationID)

	logger.Info().
		Str("conversation_id", in.ConversationID).
		Str("requester_id", in.RequesterID).
		Int64("messages", res.MessagesDeleted).
		Bool("record", res.ConversationDeleted).
		Msg("conversation deleted")
	return res, nil
}
