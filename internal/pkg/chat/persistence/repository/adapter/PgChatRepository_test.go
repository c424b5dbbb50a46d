package adapter

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "guru-chat/internal/pkg/chat/application/domain"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

func newMockRepo(t *testing.T) (*PgChatRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgChatRepository(mock), mock
}

func q(fragment string) string { return regexp.QuoteMeta(fragment) }

func TestPgSaveMessageReturnsStoreAssignedFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cid := "local-1"

	mock.ExpectQuery(q("INSERT INTO chat.message")).
		WithArgs("5_9", "5", "Hi", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("0b7c5e0e-3f7a-4d0c-9a57-3f8f0e7f0a11", at))

	saved, err := repo.SaveMessage(context.Background(), chat.Message{ConversationID: "5_9", SenderID: "5", Text: "Hi", ClientMessageID: &cid})
	require.NoError(t, err)
	assert.Equal(t, "0b7c5e0e-3f7a-4d0c-9a57-3f8f0e7f0a11", saved.ID)
	assert.Equal(t, at, saved.CreatedAt)
	assert.Equal(t, "local-1", *saved.ClientMessageID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetMessagesMapsOptionalClientID(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM chat.message")).
		WithArgs("5_9", 0, 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "conversation_id", "sender_id", "body", "client_message_id", "created_at"}).
			AddRow("m1", "5_9", "5", "Hi", "", at).
			AddRow("m2", "5_9", "9", "Hey", "c-2", at.Add(time.Second)))

	msgs, err := repo.GetMessagesByConversation(context.Background(), "5_9", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].ClientMessageID)
	require.NotNil(t, msgs[1].ClientMessageID)
	assert.Equal(t, "c-2", *msgs[1].ClientMessageID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetConversationNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(q("FROM chat.conversation")).
		WithArgs("5_9").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetConversation(context.Background(), "5_9")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListConversationsAttachesCounters(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("WHERE participant_a = $1 OR participant_b = $1")).
		WithArgs("5").
		WillReturnRows(pgxmock.NewRows([]string{"id", "participant_a", "participant_b", "last_message", "updated_at"}).
			AddRow("5_9", "5", "9", "Hi", at.Add(time.Minute)).
			AddRow("5_7", "5", "7", "Yo", at))
	mock.ExpectQuery(q("FROM chat.conversation_unread")).
		WithArgs([]string{"5_9", "5_7"}).
		WillReturnRows(pgxmock.NewRows([]string{"conversation_id", "user_id", "unread_count"}).
			AddRow("5_9", "5", 3).
			AddRow("5_9", "9", 0))

	convs, err := repo.ListConversations(context.Background(), "5")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, 3, convs[0].Unread("5"))
	assert.Equal(t, [2]string{"5", "7"}, convs[1].Participants)
	assert.NotNil(t, convs[1].UnreadCount)
	assert.Zero(t, convs[1].Unread("5"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgIncrementUnreadIsSingleStatement(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(q("unread_count = chat.conversation_unread.unread_count + EXCLUDED.unread_count")).
		WithArgs("5_9", "9", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.IncrementUnread(context.Background(), "5_9", "9", 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgResetUnreadReportsMissingCounter(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(q("UPDATE chat.conversation_unread")).
		WithArgs("5_9", "9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(q("UPDATE chat.conversation_unread")).
		WithArgs("5_9", "5").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	reset, err := repo.ResetUnread(context.Background(), "5_9", "9")
	require.NoError(t, err)
	assert.False(t, reset)

	reset, err = repo.ResetUnread(context.Background(), "5_9", "5")
	require.NoError(t, err)
	assert.True(t, reset)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteMessagesBatches(t *testing.T) {
	repo, mock := newMockRepo(t)

	n, err := repo.DeleteMessages(context.Background(), "5_9", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectExec(q("id = ANY($2::uuid[])")).
		WithArgs("5_9", []string{"a", "b"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	n, err = repo.DeleteMessages(context.Background(), "5_9", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteConversationAbsentIsNotAnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(q("DELETE FROM chat.conversation WHERE id = $1")).
		WithArgs("5_9").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repo.DeleteConversation(context.Background(), "5_9")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWithinTxCommits(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("ON CONFLICT (conversation_id, user_id) DO NOTHING")).
		WithArgs("5_9", "5").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx repository.ChatRepository) error {
		return tx.EnsureUnread(ctx, "5_9", "5")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWithinTxRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO chat.conversation ")).
		WithArgs("5_9", "5", "9", "Hi", pgxmock.AnyArg()).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx repository.ChatRepository) error {
		c := chat.NewConversation("5", "9")
		c.LastMessage = "Hi"
		c.UpdatedAt = time.Now()
		return tx.UpsertConversation(ctx, c)
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgNilPool(t *testing.T) {
	var repo *PgChatRepository
	_, err := repo.GetConversation(context.Background(), "5_9")
	assert.Error(t, err)
}
