package chat

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// idSeparator joins the two participant ids of a conversation. It is outside the
// user id alphabet, which keeps CanonicalID injective.
const idSeparator = "_"

const userIDTag = "userid"

var (
	userIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	validate      = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation(userIDTag, func(fl validator.FieldLevel) bool {
		return userIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// CanonicalID maps an unordered pair of user ids to one conversation id.
// CanonicalID(a, b) == CanonicalID(b, a). Ids must be validated by the caller.
func CanonicalID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + idSeparator + b
}

// ParseCanonicalID splits a conversation id back into its ordered participants.
func ParseCanonicalID(id string) (string, string, bool) {
	a, b, ok := strings.Cut(id, idSeparator)
	if !ok || a >= b {
		return "", "", false
	}
	if !userIDPattern.MatchString(a) || !userIDPattern.MatchString(b) {
		return "", "", false
	}
	return a, b, true
}

// ValidateUserID rejects empty or malformed identifiers.
func ValidateUserID(field, id string) error {
	if err := validate.Var(id, "required,"+userIDTag); err != nil {
		return NewValidationError(field, ErrInvalidUserID)
	}
	return nil
}

// ValidatePair validates both ids and refuses a conversation with oneself.
func ValidatePair(senderID, recipientID string) error {
	if err := ValidateUserID("sender_id", senderID); err != nil {
		return err
	}
	if err := ValidateUserID("recipient_id", recipientID); err != nil {
		return err
	}
	if senderID == recipientID {
		return NewValidationError("recipient_id", ErrSelfConversation)
	}
	return nil
}

// ResolveParticipant checks that userID belongs to conversationID and returns the other participant.
func ResolveParticipant(conversationID, userID string) (string, error) {
	a, b, ok := ParseCanonicalID(conversationID)
	if !ok {
		return "", NewValidationError("conversation_id", ErrInvalidConversation)
	}
	if err := ValidateUserID("user_id", userID); err != nil {
		return "", err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	default:
		return "", ErrNotParticipant
	}
}
