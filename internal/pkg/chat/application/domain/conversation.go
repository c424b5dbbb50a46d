package chat

import "time"

// Conversation is the summary record of a 1:1 thread.
// Participants are kept in canonical order; UnreadCount is keyed by participant id.
type Conversation struct {
	ID           string         `json:"id"`
	Participants [2]string      `json:"participants"`
	LastMessage  string         `json:"last_message"`
	UpdatedAt    time.Time      `json:"updated_at"`
	UnreadCount  map[string]int `json:"unread_count"`
}

// NewConversation builds the record for a pair of users.
func NewConversation(a, b string) Conversation {
	if b < a {
		a, b = b, a
	}
	return Conversation{
		ID:           CanonicalID(a, b),
		Participants: [2]string{a, b},
		UnreadCount:  map[string]int{},
	}
}

func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.Participants[0] == userID || c.Participants[1] == userID)
}

// Peer returns the participant that is not userID.
func (c Conversation) Peer(userID string) (string, bool) {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	}
	return "", false
}

// Unread returns the counter of userID, zero when unset.
func (c Conversation) Unread(userID string) int {
	return c.UnreadCount[userID]
}

// Clone deep-copies the unread map.
func (c Conversation) Clone() Conversation {
	out := c
	out.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		out.UnreadCount[k] = v
	}
	return out
}

// ConversationLess orders by recency, most recently updated first.
func ConversationLess(a, b Conversation) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}
