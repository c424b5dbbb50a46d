package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "guru-chat/internal/pkg/chat/application/domain"
)

func TestSubscribeMessagesStreamsInOrder(t *testing.T) {
	e := newEnv()
	first := e.mustSend(t, "5", "9", "one")

	sub, err := NewSubscribeMessagesUseCase(e.repo, e.feed).Execute(context.Background(), SubscribeMessagesInput{ConversationID: "5_9", ViewerID: "9"})
	require.NoError(t, err)
	defer sub.Close()

	initial := waitFor(t, sub.Updates(), func(snapshotOfMessages) bool { return true })
	require.Len(t, initial.Items, 1)
	assert.Equal(t, first.ID, initial.Items[0].ID)

	second := e.mustSend(t, "9", "5", "two")
	third := e.mustSend(t, "5", "9", "three")

	snap := waitFor(t, sub.Updates(), func(s snapshotOfMessages) bool { return len(s.Items) == 3 })
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{snap.Items[0].ID, snap.Items[1].ID, snap.Items[2].ID})
	for i := 1; i < len(snap.Items); i++ {
		assert.False(t, snap.Items[i].CreatedAt.Before(snap.Items[i-1].CreatedAt))
	}
}

func TestSubscribeMessagesBeforeFirstMessage(t *testing.T) {
	e := newEnv()
	sub, err := NewSubscribeMessagesUseCase(e.repo, e.feed).Execute(context.Background(), SubscribeMessagesInput{ConversationID: "5_9", ViewerID: "5"})
	require.NoError(t, err)
	defer sub.Close()

	initial := waitFor(t, sub.Updates(), func(snapshotOfMessages) bool { return true })
	assert.Empty(t, initial.Items)

	e.mustSend(t, "9", "5", "Hi")
	snap := waitFor(t, sub.Updates(), func(s snapshotOfMessages) bool { return len(s.Items) == 1 })
	require.Len(t, snap.Changes, 1)
	assert.Equal(t, chat.ChangeAdded, snap.Changes[0].Type)
}

func TestSubscribeMessagesRequiresParticipant(t *testing.T) {
	e := newEnv()
	_, err := NewSubscribeMessagesUseCase(e.repo, e.feed).Execute(context.Background(), SubscribeMessagesInput{ConversationID: "5_9", ViewerID: "7"})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
}

func TestSubscribeMessagesCloseStopsDelivery(t *testing.T) {
	e := newEnv()
	sub, err := NewSubscribeMessagesUseCase(e.repo, e.feed).Execute(context.Background(), SubscribeMessagesInput{ConversationID: "5_9", ViewerID: "5"})
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	e.mustSend(t, "5", "9", "after close")

	_, ok := <-sub.Updates()
	assert.False(t, ok)
	assert.Zero(t, e.feed.Subscribers(chat.MessagesTopic("5_9")))
}

func TestSubscribeConversationsOrdersByRecency(t *testing.T) {
	e := newEnv()
	e.mustSend(t, "5", "9", "old")
	e.mustSend(t, "5", "7", "newer")

	sub, err := NewSubscribeConversationsUseCase(e.repo, e.feed).Execute(context.Background(), SubscribeConversationsInput{UserID: "5"})
	require.NoError(t, err)
	defer sub.Close()

	initial := waitFor(t, sub.Updates(), func(snapshotOfConversations) bool { return true })
	require.Len(t, initial.Items, 2)
	assert.Equal(t, "5_7", initial.Items[0].ID)

	e.mustSend(t, "9", "5", "bump")
	snap := waitFor(t, sub.Updates(), func(s snapshotOfConversations) bool {
		return len(s.Items) == 2 && s.Items[0].ID == "5_9"
	})
	assert.Equal(t, "bump", snap.Items[0].LastMessage)
	assert.Equal(t, 1, snap.Items[0].Unread("5"))
}
