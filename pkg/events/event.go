package events

import "time"

// Event defines the contract for all domain events crossing the bus.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_MESSAGE_RECEIVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event codes published by the realtime core.
const (
	TypeChatMessageReceived  = "CHAT_MESSAGE_RECEIVED"
	TypeConsultationComplete = "CONSULTATION_COMPLETED"
)
