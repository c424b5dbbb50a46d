package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "guru-chat/internal/pkg/chat/application/domain"
)

func TestDeleteConversationRemovesEverything(t *testing.T) {
	e := newEnv()
	for i := 0; i < 50; i++ {
		e.mustSend(t, "5", "9", "m")
	}
	repo := &faultyRepo{ChatRepository: e.repo}
	uc := NewDeleteConversationUseCase(repo, e.feed)
	uc.BatchSize = 7

	res, err := uc.Execute(context.Background(), DeleteConversationInput{ConversationID: "5_9", RequesterID: "5"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.MessagesDeleted)
	assert.Equal(t, int64(2), res.CountersDeleted)
	assert.True(t, res.ConversationDeleted)
	assert.Equal(t, 8, repo.deleteCalls)
	assert.Equal(t, 7, repo.maxBatch)

	msgs, err := e.repo.GetMessagesByConversation(context.Background(), "5_9", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	_, err = e.repo.GetConversation(context.Background(), "5_9")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
}

func TestDeleteConversationTwiceConverges(t *testing.T) {
	e := newEnv()
	e.mustSend(t, "5", "9", "Hi")
	uc := NewDeleteConversationUseCase(e.repo, e.feed)
	in := DeleteConversationInput{ConversationID: "5_9", RequesterID: "9"}

	_, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)

	res, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, DeleteConversationResult{}, res)
}

func TestDeleteConversationResumesAfterInterruption(t *testing.T) {
	e := newEnv()
	for i := 0; i < 10; i++ {
		e.mustSend(t, "5", "9", "m")
	}
	repo := &faultyRepo{ChatRepository: e.repo, failDeleteAt: 2}
	uc := NewDeleteConversationUseCase(repo, e.feed)
	uc.BatchSize = 4
	in := DeleteConversationInput{ConversationID: "5_9", RequesterID: "5"}

	res, err := uc.Execute(context.Background(), in)
	require.ErrorIs(t, err, ErrTransientStore)
	assert.Equal(t, int64(4), res.MessagesDeleted)
	// summary survives the partial run
	_, err = e.repo.GetConversation(context.Background(), "5_9")
	require.NoError(t, err)

	repo.failDeleteAt = 0
	res, err = uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.MessagesDeleted)
	assert.True(t, res.ConversationDeleted)
}

func TestDeleteConversationRequiresParticipant(t *testing.T) {
	e := newEnv()
	e.mustSend(t, "5", "9", "Hi")

	_, err := NewDeleteConversationUseCase(e.repo, e.feed).Execute(context.Background(), DeleteConversationInput{ConversationID: "5_9", RequesterID: "6"})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
	e.conversation(t, "5", "9")
}

func TestDeleteConversationEmptiesLiveViews(t *testing.T) {
	e := newEnv()
	e.mustSend(t, "5", "9", "one")
	e.mustSend(t, "9", "5", "two")

	msgs, err := NewSubscribeMessagesUseCase(e.repo, e.feed).Execute(context.Background(), SubscribeMessagesInput{ConversationID: "5_9", ViewerID: "5"})
	require.NoError(t, err)
	defer msgs.Close()
	convs, err := NewSubscribeConversationsUseCase(e.repo, e.feed).Execute(context.Background(), SubscribeConversationsInput{UserID: "9"})
	require.NoError(t, err)
	defer convs.Close()

	_, err = NewDeleteConversationUseCase(e.repo, e.feed).Execute(context.Background(), DeleteConversationInput{ConversationID: "5_9", RequesterID: "5"})
	require.NoError(t, err)

	waitFor(t, msgs.Updates(), func(s snapshotOfMessages) bool { return len(s.Items) == 0 })
	waitFor(t, convs.Updates(), func(s snapshotOfConversations) bool { return len(s.Items) == 0 })
}
