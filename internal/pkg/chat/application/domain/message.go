package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength bounds the text of a single message, in runes.
const MaxMessageLength = 4000

// Message is an immutable log entry in a conversation.
// CreatedAt is assigned by the store; a zero CreatedAt marks an optimistic local copy.
type Message struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversation_id"`
	SenderID        string    `json:"sender_id"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	ClientMessageID *string   `json:"client_message_id,omitempty"`
}

// NewMessage validates and normalizes a message before it is handed to a store.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" {
		return nil, NewValidationError("conversation_id", ErrInvalidConversation)
	}
	if err := ValidateUserID("sender_id", m.SenderID); err != nil {
		return nil, err
	}

	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return nil, NewValidationError("text", ErrEmptyMessage)
	}
	if utf8.RuneCountInString(m.Text) > MaxMessageLength {
		return nil, NewValidationError("text", ErrMessageTooLong)
	}

	if m.ClientMessageID != nil {
		trimmed := strings.TrimSpace(*m.ClientMessageID)
		if trimmed == "" {
			m.ClientMessageID = nil
		} else {
			m.ClientMessageID = &trimmed
		}
	}

	m.ID = ""
	m.CreatedAt = time.Time{}
	return &m, nil
}

// Pending reports whether the store has not confirmed this message yet.
func (m Message) Pending() bool { return m.CreatedAt.IsZero() }

// MessageLess orders by server timestamp ascending. Pending messages sort last.
func MessageLess(a, b Message) bool {
	if a.Pending() != b.Pending() {
		return b.Pending()
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
