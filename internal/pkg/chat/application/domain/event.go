package chat

import (
	"encoding/json"
	"errors"
)

// ChangeType classifies a live change notification.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// ChangeEvent is the payload published on the change feed.
// Exactly one of Message or ConversationID is set. Conversation events carry no
// record: subscribers read the current summary from the store.
type ChangeEvent struct {
	Type           ChangeType `json:"type"`
	Message        *Message   `json:"message,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
}

var errEmptyEvent = errors.New("chat: change event needs exactly one of message or conversation_id")

// MessagesTopic is the feed topic of one conversation's message log.
func MessagesTopic(conversationID string) string { return "messages:" + conversationID }

// ConversationsTopic is the feed topic of one user's conversation list.
func ConversationsTopic(userID string) string { return "conversations:" + userID }

func (e ChangeEvent) Encode() ([]byte, error) {
	if (e.Message == nil) == (e.ConversationID == "") {
		return nil, errEmptyEvent
	}
	return json.Marshal(e)
}

func DecodeChangeEvent(b []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return ChangeEvent{}, err
	}
	if (e.Message == nil) == (e.ConversationID == "") {
		return ChangeEvent{}, errEmptyEvent
	}
	switch e.Type {
	case ChangeAdded, ChangeModified, ChangeRemoved:
	default:
		return ChangeEvent{}, errors.New("chat: unknown change type " + string(e.Type))
	}
	return e, nil
}
