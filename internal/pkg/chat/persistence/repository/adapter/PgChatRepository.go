package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	chat "guru-chat/internal/pkg/chat/application/domain"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
)

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgChatRepository struct {
	db   Querier
	pool DB // nil inside a transaction
}

func NewPgChatRepository(pool DB) *PgChatRepository {
	return &PgChatRepository{db: pool, pool: pool}
}

var (
	_ repository.ChatRepository = (*PgChatRepository)(nil)
	_ repository.Transactor     = (*PgChatRepository)(nil)
)

var errNilPool = errors.New("PgChatRepository: nil pool")

func (r *PgChatRepository) ready() error {
	if r == nil || r.db == nil {
		return errNilPool
	}
	return nil
}

// WithinTx runs fn against a repository bound to a single transaction.
func (r *PgChatRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo repository.ChatRepository) error) error {
	if err := r.ready(); err != nil {
		return err
	}
	if r.pool == nil {
		// already inside a transaction
		return fn(ctx, r)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, &PgChatRepository{db: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if err := r.ready(); err != nil {
		return chat.Message{}, err
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, body, client_message_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`, m.ConversationID, m.SenderID, m.Text, m.ClientMessageID).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return chat.Message{}, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func (r *PgChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT id::text, conversation_id, sender_id, body, COALESCE(client_message_id, ''), created_at
		FROM chat.message
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		OFFSET $2
	`
	args := []any{conversationID, offset}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg      chat.Message
			clientID string
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Text, &clientID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if clientID != "" {
			msg.ClientMessageID = &clientID
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgChatRepository) ListMessageIDs(ctx context.Context, conversationID string) ([]string, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id::text FROM chat.message WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (r *PgChatRepository) DeleteMessages(ctx context.Context, conversationID string, ids []string) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	ct, err := r.db.Exec(ctx, `
		DELETE FROM chat.message
		WHERE conversation_id = $1 AND id = ANY($2::uuid[])
	`, conversationID, ids)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PgChatRepository) UpsertConversation(ctx context.Context, c chat.Conversation) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat.conversation (id, participant_a, participant_b, last_message, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET last_message = CASE
		                  WHEN EXCLUDED.updated_at >= chat.conversation.updated_at THEN EXCLUDED.last_message
		                  ELSE chat.conversation.last_message
		              END,
		              updated_at = GREATEST(chat.conversation.updated_at, EXCLUDED.updated_at)
	`, c.ID, c.Participants[0], c.Participants[1], c.LastMessage, c.UpdatedAt)
	return err
}

func (r *PgChatRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var c chat.Conversation
	err := r.db.QueryRow(ctx, `
		SELECT id, participant_a, participant_b, last_message, updated_at
		FROM chat.conversation
		WHERE id = $1
	`, conversationID).Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.LastMessage, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chat.ErrConversationNotFound
		}
		return nil, err
	}
	c.UpdatedAt = c.UpdatedAt.UTC()

	counters, err := r.loadUnread(ctx, []string{c.ID})
	if err != nil {
		return nil, err
	}
	c.UnreadCount = counters[c.ID]
	if c.UnreadCount == nil {
		c.UnreadCount = map[string]int{}
	}
	return &c, nil
}

func (r *PgChatRepository) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, participant_a, participant_b, last_message, updated_at
		FROM chat.conversation
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY updated_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]chat.Conversation, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.LastMessage, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.UpdatedAt = c.UpdatedAt.UTC()
		convs = append(convs, c)
		ids = append(ids, c.ID)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(convs) == 0 {
		return convs, nil
	}

	counters, err := r.loadUnread(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].UnreadCount = counters[convs[i].ID]
		if convs[i].UnreadCount == nil {
			convs[i].UnreadCount = map[string]int{}
		}
	}
	return convs, nil
}

func (r *PgChatRepository) loadUnread(ctx context.Context, conversationIDs []string) (map[string]map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT conversation_id, user_id, unread_count
		FROM chat.conversation_unread
		WHERE conversation_id = ANY($1)
	`, conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]int, len(conversationIDs))
	for rows.Next() {
		var (
			convID, userID string
			count          int
		)
		if err := rows.Scan(&convID, &userID, &count); err != nil {
			return nil, err
		}
		if out[convID] == nil {
			out[convID] = make(map[string]int, 2)
		}
		out[convID][userID] = count
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *PgChatRepository) DeleteConversation(ctx context.Context, conversationID string) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	ct, err := r.db.Exec(ctx, `DELETE FROM chat.conversation WHERE id = $1`, conversationID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgChatRepository) EnsureUnread(ctx context.Context, conversationID string, userID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat.conversation_unread (conversation_id, user_id, unread_count)
		VALUES ($1, $2, 0)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID, userID)
	return err
}

func (r *PgChatRepository) IncrementUnread(ctx context.Context, conversationID string, userID string, delta int) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat.conversation_unread (conversation_id, user_id, unread_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, user_id)
		DO UPDATE SET unread_count = chat.conversation_unread.unread_count + EXCLUDED.unread_count
	`, conversationID, userID, delta)
	return err
}

func (r *PgChatRepository) ResetUnread(ctx context.Context, conversationID string, userID string) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	ct, err := r.db.Exec(ctx, `
		UPDATE chat.conversation_unread
		SET unread_count = 0
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgChatRepository) DeleteUnread(ctx context.Context, conversationID string) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	ct, err := r.db.Exec(ctx, `DELETE FROM chat.conversation_unread WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
