package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "guru-chat/internal/pkg/chat/application/domain"
)

func TestTimelineKeepsPendingLastInInsertionOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tl := NewTimeline()
	first := tl.AddPending("5_9", "5", " one ")
	second := tl.AddPending("5_9", "5", "two")

	tl.Apply([]chat.Message{{ID: "s1", ConversationID: "5_9", SenderID: "9", Text: "hey", CreatedAt: base}})

	msgs := tl.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "s1", msgs[0].ID)
	assert.Equal(t, first.ID, msgs[1].ID)
	assert.Equal(t, "one", msgs[1].Text)
	assert.Equal(t, second.ID, msgs[2].ID)
	assert.True(t, msgs[2].Pending())
}

func TestTimelineReconcilesByClientMessageID(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tl := NewTimeline()
	p := tl.AddPending("5_9", "5", "Hi")
	cid := *p.ClientMessageID

	// the stored copy lands before an older message from the peer once sorted
	tl.Apply([]chat.Message{
		{ID: "srv-2", ConversationID: "5_9", SenderID: "9", Text: "later", CreatedAt: base.Add(time.Second)},
		{ID: "srv-1", ConversationID: "5_9", SenderID: "5", Text: "Hi", CreatedAt: base, ClientMessageID: &cid},
	})

	msgs := tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"srv-1", "srv-2"}, ids(msgs))
	assert.Zero(t, tl.Pending())
}

func TestTimelineFailDropsPlaceholder(t *testing.T) {
	tl := NewTimeline()
	p := tl.AddPending("5_9", "5", "Hi")

	assert.True(t, tl.Fail(*p.ClientMessageID))
	assert.False(t, tl.Fail(*p.ClientMessageID))
	assert.Empty(t, tl.Messages())
}
