package events

import "time"

const (
	TypeMessageSent          = "MESSAGE_SENT"
	TypePresenceChanged      = "PRESENCE_CHANGED"
	TypeMessageStatusChanged = "MESSAGE_STATUS_CHANGED"
)

// Event defines the contract for all domain events leaving the chat core.
type Event interface {
	// EventType returns the unique code for this event (e.g. "MESSAGE_SENT").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}, at time.Time) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: at}
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
