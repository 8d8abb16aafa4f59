package amqp

import (
	"encoding/json"
	"time"
)

// Message is the envelope for everything finora publishes. Payload carries
// the event or notification body.
type Message struct {
	Type      string          `json:"type"`
	OwnerID   string          `json:"owner_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps payload in an envelope stamped with the current time.
func NewMessage(msgType, ownerID string, payload interface{}) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		OwnerID:   ownerID,
		Payload:   body,
		Timestamp: time.Now(),
	}, nil
}

// ToJSON converts the message to JSON bytes.
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON parses an envelope.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
