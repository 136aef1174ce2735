package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried in LedgerEventMessage.
const (
	EventTransactionPosted   = "transaction.posted"
	EventTransactionReversed = "transaction.reversed"
	EventRecurringSwept      = "recurring.swept"
)

// LedgerEventMessage is a lightweight notification that something happened
// to the ledger. Consumers fetch full details from the store; the message
// only carries the event kind and the affected id.
type LedgerEventMessage struct {
	Event     string    `json:"event"`
	ID        int64     `json:"id"`
	Date      string    `json:"date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates a message for the given event and entity id.
func NewLedgerEventMessage(event string, id int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:     event,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
