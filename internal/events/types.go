// Package events defines the timer notification taxonomy and the channel-based
// router that fans notifications out to the tray, persistence, and RPC watchers.
package events

import (
	"time"

	"github.com/npratt/cactus/internal/model"
)

// EventType identifies the category and nature of an event.
type EventType string

// Event types.
const (
	// EventState is emitted after every timer or settings mutation and on
	// every tick that changes the remaining whole seconds.
	EventState EventType = "state"
	// EventTimerEnded is emitted when a countdown reaches zero naturally.
	EventTimerEnded EventType = "timer-ended"

	// Daemon lifecycle
	EventDaemonStart EventType = "daemon.start"
	EventDaemonStop  EventType = "daemon.stop"
)

// Source constants identify the origin of events.
const (
	SourceTimer  = "timer"
	SourceDaemon = "cactus"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// TimerEvent carries a snapshot taken at emit time. The snapshot's remaining
// seconds are always freshly computed, never the stale cached field.
type TimerEvent struct {
	BaseEvent
	Payload model.Snapshot `json:"payload"`
}

// Snapshot returns the payload.
func (e *TimerEvent) Snapshot() model.Snapshot {
	return e.Payload
}

// DaemonStartEvent is emitted when the daemon comes up.
type DaemonStartEvent struct {
	BaseEvent
	PID int `json:"pid"`
}

// DaemonStopEvent is emitted when the daemon shuts down.
type DaemonStopEvent struct {
	BaseEvent
	Reason string `json:"reason,omitempty"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewTimerEvent builds a state or timer-ended event at the given instant.
func NewTimerEvent(eventType EventType, at time.Time, snap model.Snapshot) *TimerEvent {
	return &TimerEvent{
		BaseEvent: BaseEvent{EventType: eventType, Time: at, Src: SourceTimer},
		Payload:   snap,
	}
}

// NewDaemonEvent creates a BaseEvent with the daemon as the source.
func NewDaemonEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceDaemon)
}
