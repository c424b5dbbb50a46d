package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guru-chat/internal/infrastructure/realtime"
	chat "guru-chat/internal/pkg/chat/application/domain"
)

func TestMarkReadResetsOnlyTheReader(t *testing.T) {
	e := newEnv()
	for i := 0; i < 3; i++ {
		e.mustSend(t, "5", "9", "from five")
	}
	e.mustSend(t, "9", "5", "from nine")
	e.mustSend(t, "9", "5", "again")

	uc := NewMarkReadUseCase(e.repo, e.feed)
	reset, err := uc.Execute(context.Background(), MarkReadInput{ConversationID: "5_9", UserID: "9"})
	require.NoError(t, err)
	assert.True(t, reset)

	conv := e.conversation(t, "5", "9")
	assert.Equal(t, 0, conv.Unread("9"))
	assert.Equal(t, 2, conv.Unread("5"))

	// idempotent
	reset, err = uc.Execute(context.Background(), MarkReadInput{ConversationID: "5_9", UserID: "9"})
	require.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, 0, e.conversation(t, "5", "9").Unread("9"))
}

func TestMarkReadWithoutConversationIsNoop(t *testing.T) {
	e := newEnv()
	reset, err := NewMarkReadUseCase(e.repo, e.feed).Execute(context.Background(), MarkReadInput{ConversationID: "5_9", UserID: "5"})
	require.NoError(t, err)
	assert.False(t, reset)

	_, err = e.repo.GetConversation(context.Background(), "5_9")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
}

func TestMarkReadRejectsOutsiders(t *testing.T) {
	e := newEnv()
	e.mustSend(t, "5", "9", "Hi")
	uc := NewMarkReadUseCase(e.repo, e.feed)

	_, err := uc.Execute(context.Background(), MarkReadInput{ConversationID: "5_9", UserID: "7"})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)

	_, err = uc.Execute(context.Background(), MarkReadInput{ConversationID: "nonsense", UserID: "5"})
	assert.ErrorIs(t, err, chat.ErrInvalidConversation)

	assert.Equal(t, 1, e.conversation(t, "5", "9").Unread("9"))
}

func TestMarkReadFailureIsTransient(t *testing.T) {
	e := newEnv()
	e.mustSend(t, "5", "9", "Hi")

	uc := NewMarkReadUseCase(&faultyRepo{ChatRepository: e.repo, failReset: true}, realtime.NewFeed(0))
	_, err := uc.Execute(context.Background(), MarkReadInput{ConversationID: "5_9", UserID: "9"})
	assert.ErrorIs(t, err, ErrTransientStore)
	assert.Equal(t, 1, e.conversation(t, "5", "9").Unread("9"), "counter stays stale until the next read")
}

func TestMarkReadPublishesToBothParticipants(t *testing.T) {
	e := newEnv()
	e.mustSend(t, "5", "9", "Hi")
	five := e.feed.Subscribe(chat.ConversationsTopic("5"))
	nine := e.feed.Subscribe(chat.ConversationsTopic("9"))
	defer five.Close()
	defer nine.Close()

	_, err := NewMarkReadUseCase(e.repo, e.feed).Execute(context.Background(), MarkReadInput{ConversationID: "5_9", UserID: "9"})
	require.NoError(t, err)

	evFive, err := chat.DecodeChangeEvent((<-five.Events()).Payload)
	require.NoError(t, err)
	evNine, err := chat.DecodeChangeEvent((<-nine.Events()).Payload)
	require.NoError(t, err)
	assert.Equal(t, "5_9", evFive.ConversationID)
	assert.Equal(t, "5_9", evNine.ConversationID)
	assert.Zero(t, e.conversation(t, "5", "9").Unread("9"))
}
