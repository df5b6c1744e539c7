package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// EventType names a change to the expense collection.
type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
)

// ExpenseEvent carries the full record after the change, so consumers never
// need to read back from the store.
type ExpenseEvent struct {
	Type      EventType    `json:"type"`
	Expense   core.Expense `json:"expense"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewExpenseEvent(typ EventType, e core.Expense) ExpenseEvent {
	return ExpenseEvent{
		Type:      typ,
		Expense:   e,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes an event and rejects unknown types.
func ExpenseEventFromJSON(data []byte) (ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ExpenseEvent{}, err
	}
	switch ev.Type {
	case EventExpenseCreated, EventExpenseUpdated:
	default:
		return ExpenseEvent{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.Expense.ID == "" {
		return ExpenseEvent{}, fmt.Errorf("event %s without expense id", ev.Type)
	}
	return ev, nil
}
