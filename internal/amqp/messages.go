package amqp

import (
	"encoding/json"
	"time"
)

// Event types published on the expense lifecycle.
const (
	EventExpenseCreated  = "expense.created"
	EventExpenseApproved = "expense.approved"
	EventExpenseRejected = "expense.rejected"
	EventExpenseDeleted  = "expense.deleted"
)

// ExpenseEventMessage is a lightweight lifecycle notification. It carries only
// the event type and expense id; consumers fetch the full record from storage.
type ExpenseEventMessage struct {
	Type      string    `json:"type"`
	ExpenseID int64     `json:"expense_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEventMessage creates a new lifecycle event message.
func NewExpenseEventMessage(eventType string, expenseID, version int64) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Type:      eventType,
		ExpenseID: expenseID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
