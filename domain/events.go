package domain

import "encoding/json"

const (
	TaskCreated     = "task:created"
	TaskMoved       = "task:moved"
	TaskDeleted     = "task:deleted"
	MessageReceived = "message:received"
	AdminQR         = "admin:qr"
	AdminReady      = "admin:ready"
)

// Event is the envelope broadcast to connected viewer sessions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TaskMovedEventData carries the minimal delta viewers need to apply a
// move locally.
type TaskMovedEventData struct {
	ID       string `json:"id"`
	ColumnID Column `json:"columnId"`
	Order    int    `json:"order"`
}
