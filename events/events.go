package events

import (
	"errors"
	"time"
)

// Common errors.
var (
	ErrClosed = errors.New("emitter closed")
)

// Type identifies a lifecycle event. Values double as bus subjects.
type Type string

const (
	TypeTaskCreated   Type = "tasks.created"
	TypeTaskClaimed   Type = "tasks.claimed"
	TypeTaskCompleted Type = "tasks.completed"
	TypeTaskFailed    Type = "tasks.failed"
	TypeTaskCancelled Type = "tasks.cancelled"
	TypeTaskDeleted   Type = "tasks.deleted"

	TypeDispatcherStarted   Type = "dispatcher.started"
	TypeDispatcherStopped   Type = "dispatcher.stopped"
	TypeDispatcherHeartbeat Type = "dispatcher.heartbeat"
)

// Event is one task or dispatcher lifecycle occurrence.
// The core emits these; formatting and routing belong to the emitter.
type Event struct {
	// Type identifies what happened.
	Type Type `json:"type"`

	// TaskID is set on task events, empty on dispatcher events.
	TaskID string `json:"task_id,omitempty"`

	// Status is the task's status after the event.
	Status string `json:"status,omitempty"`

	// Error carries the failure message on tasks.failed.
	Error string `json:"error,omitempty"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Dispatcher counters, set on dispatcher.heartbeat and
	// dispatcher.stopped.
	Processed uint64 `json:"processed,omitempty"`
	Failed    uint64 `json:"failed,omitempty"`
	InFlight  int    `json:"in_flight,omitempty"`
}

// Emitter publishes lifecycle events.
type Emitter interface {
	// Emit publishes a single event. Emit never blocks on slow
	// consumers; delivery is best-effort.
	Emit(e Event) error

	// Close shuts down the emitter.
	Close() error
}

// Stream is an Emitter whose events can also be consumed in-process.
type Stream interface {
	Emitter

	// Subscribe creates a subscription receiving every event emitted
	// after the call.
	Subscribe() (Subscription, error)
}

// Subscription represents an active event subscription.
type Subscription interface {
	// Events returns the channel of incoming events.
	// The channel is closed when the subscription ends.
	Events() <-chan Event

	// Unsubscribe cancels the subscription.
	Unsubscribe() error
}

// Nop is an Emitter that discards everything.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(Event) error { return nil }

// Close implements Emitter.
func (Nop) Close() error { return nil }

// stamp fills in the timestamp if the caller left it zero.
func stamp(e Event) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return e
}
