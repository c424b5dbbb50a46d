package repository

import (
	"context"

	chat "guru-chat/internal/pkg/chat/application/domain"
)

// ChatRepository defines the store primitives the chat core relies on.
// Every write is a targeted field-level operation; callers never read-modify-write a record.
type ChatRepository interface {
	// SaveMessage appends a message and returns it with its store-assigned ID and CreatedAt.
	SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	// GetMessagesByConversation returns messages ascending by CreatedAt. limit <= 0 returns all.
	GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error)
	ListMessageIDs(ctx context.Context, conversationID string) ([]string, error)
	// DeleteMessages removes the given messages of a conversation in one statement.
	DeleteMessages(ctx context.Context, conversationID string, ids []string) (int64, error)

	// UpsertConversation creates the record or merges LastMessage/UpdatedAt into it.
	// UpdatedAt never moves backwards.
	UpsertConversation(ctx context.Context, c chat.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)
	// DeleteConversation reports whether a record was removed.
	DeleteConversation(ctx context.Context, conversationID string) (bool, error)

	// EnsureUnread creates a zero counter for userID when none exists.
	EnsureUnread(ctx context.Context, conversationID string, userID string) error
	// IncrementUnread atomically adds delta to the counter of userID.
	IncrementUnread(ctx context.Context, conversationID string, userID string, delta int) error
	// ResetUnread sets the counter of userID to zero. It reports false when no counter exists.
	ResetUnread(ctx context.Context, conversationID string, userID string) (bool, error)
	DeleteUnread(ctx context.Context, conversationID string) (int64, error)
}

// Transactor is implemented by stores that can run several primitives atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo ChatRepository) error) error
}
