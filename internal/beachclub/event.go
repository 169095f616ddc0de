package beachclub

import "encoding/json"

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is a change notification for one row of a table, as published on
// the change stream. New is absent for deletes, Old for inserts.
type Event struct {
	EventType EventType       `json:"eventType"`
	Table     string          `json:"table"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}
