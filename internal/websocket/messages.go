package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	TypeSyncRunStarted    MessageType = "sync.run_started"
	TypeSyncRunCompleted  MessageType = "sync.run_completed"
	TypeSyncRunFailed     MessageType = "sync.run_failed"
	TypeSyncPropertyError MessageType = "sync.property_error"

	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// RunPayload is the payload of sync.run_* events.
type RunPayload struct {
	RunID               string     `json:"run_id"`
	Trigger             string     `json:"trigger"`
	Status              string     `json:"status"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
	PropertiesSynced    int        `json:"properties_synced"`
	ReservationsCreated int        `json:"reservations_created"`
	ErrorCount          int        `json:"error_count"`
	Error               string     `json:"error,omitempty"`
}

// PropertyErrorPayload is the payload of sync.property_error events.
type PropertyErrorPayload struct {
	RunID        string `json:"run_id,omitempty"`
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name"`
	Error        string `json:"error"`
}

// ErrorPayload answers a client message the server does not understand.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
