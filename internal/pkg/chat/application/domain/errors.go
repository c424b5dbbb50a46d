package chat

import (
	"errors"
	"fmt"
)

// Domain-level errors for chat behaviors
var (
	ErrEmptyMessage         = errors.New("chat: empty message")
	ErrMessageTooLong       = errors.New("chat: message exceeds maximum length")
	ErrInvalidUserID        = errors.New("chat: malformed user id")
	ErrSelfConversation     = errors.New("chat: sender and recipient are the same user")
	ErrInvalidConversation  = errors.New("chat: malformed conversation id")
	ErrNotParticipant       = errors.New("chat: user is not a participant in the conversation")
	ErrConversationNotFound = errors.New("chat: conversation not found")
)

// ValidationError reports input rejected before any store write.
// Err is one of the sentinel errors above so callers can match with errors.Is.
type ValidationError struct {
	Field string
	Err   error
}

func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation tells whether err carries a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
