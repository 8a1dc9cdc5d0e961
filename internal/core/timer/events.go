package timer

import (
	"time"

	"clocktimer/internal/core/model"
)

// EventType defines the type of Engine event.
type EventType string

const (
	EventTick        EventType = "tick"
	EventStateChange EventType = "state_change"
	EventFinished    EventType = "finished"
)

// Event represents an Engine update for subscribers.
type Event struct {
	Type   EventType
	Time   model.Time
	Status model.State
	At     time.Time
}

// TickPayload is the outbound shape of a tick for external collaborators.
type TickPayload struct {
	TimeInMillis int64       `json:"timeInMillis"`
	Status       model.State `json:"status"`
}

// Payload returns the outbound tick shape of the event.
func (event Event) Payload() TickPayload {
	return TickPayload{
		TimeInMillis: event.Time.TimeInMillis,
		Status:       event.Status,
	}
}
