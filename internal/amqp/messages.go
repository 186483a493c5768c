package amqp

import (
	"encoding/json"
	"time"
)

// EventKind distinguishes the two jobs the worker handles.
type EventKind string

const (
	// EventRetrain asks the worker to rebuild the classifier model from
	// the full expense history.
	EventRetrain EventKind = "retrain"
	// EventExport asks the worker to push pending expenses to the sheet.
	EventExport EventKind = "export"
)

// ModelEvent is the wire message between the web process and the worker.
// It carries only the kind and the triggering expense ID; the worker
// fetches everything else from the database.
type ModelEvent struct {
	Kind      EventKind `json:"kind"`
	ExpenseID int64     `json:"expense_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRetrainEvent(expenseID int64) *ModelEvent {
	return &ModelEvent{
		Kind:      EventRetrain,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

func NewExportEvent(expenseID int64) *ModelEvent {
	return &ModelEvent{
		Kind:      EventExport,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

func (m *ModelEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ModelEventFromJSON(data []byte) (*ModelEvent, error) {
	var msg ModelEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
