package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEvent describes one persisted change to the ledger. Only identifiers
// and the fields needed to route the event are carried; consumers read the
// document for the rest.
type LedgerEvent struct {
	Operation     string    `json:"operation"`
	GroupID       string    `json:"group_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Type          string    `json:"type,omitempty"`
	Category      string    `json:"category,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event for operation on groupID.
func NewLedgerEvent(operation, groupID string) *LedgerEvent {
	return &LedgerEvent{
		Operation: operation,
		GroupID:   groupID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
