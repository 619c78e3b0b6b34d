package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"vogon/internal/events"
)

// ChangeMessage carries one ledger event. It holds only the event identity;
// consumers read current state from the store.
type ChangeMessage struct {
	ID        uuid.UUID    `json:"id"`
	Event     events.Event `json:"event"`
	Source    string       `json:"source,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewChangeMessage wraps e in a message with a fresh id.
func NewChangeMessage(e events.Event, source string) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.New(),
		Event:     e,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects ones without an event
// category.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Event.Category == "" {
		return nil, errors.New("message has no event category")
	}
	return &msg, nil
}
