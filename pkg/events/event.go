package events

import (
	"strings"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "EVENT_DELETION_SCHEDULED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// DeletionEventPrefix prefixes every deletion lifecycle event type
const DeletionEventPrefix = "EVENT_DELETION_"

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

// DeletionEventType maps a notification kind such as "reminder_30m" to EVENT_DELETION_REMINDER_30M
func DeletionEventType(kind string) string {
	return DeletionEventPrefix + strings.ToUpper(kind)
}

func NewDeletionEvent(kind string, data map[string]interface{}, at time.Time) BaseEvent {
	return BaseEvent{
		Type:       DeletionEventType(kind),
		Data:       data,
		OccurredAt: at,
	}
}
