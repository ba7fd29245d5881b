package tasks

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Common errors.
var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTitle indicates the title is empty or exceeds the bound.
	ErrInvalidTitle = errors.New("title must be 1-255 characters")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPriority indicates an unknown priority value.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrIllegalTransition indicates the requested status change is not
	// a legal edge in the task lifecycle.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// MaxTitleLength is the upper bound on task titles, in characters.
const MaxTitleLength = 255

// Status represents the current state of a task.
type Status string

const (
	// StatusPending indicates the task is waiting to be claimed.
	StatusPending Status = "pending"

	// StatusInProgress indicates the task has been claimed by the dispatcher.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the task finished with an error.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the task was cancelled before finishing.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid returns true if the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further dispatcher action occurs for
// a task in this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Statuses lists all known statuses in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled}
}

// ParseStatus converts a string to a Status.
// Returns ErrInvalidStatus for unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Priority is an ordering hint consumed by executor scheduling policy.
// The store's claim order never consults it.
type Priority string

const (
	// PriorityLow marks background work.
	PriorityLow Priority = "low"

	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"

	// PriorityHigh marks time-sensitive work.
	PriorityHigh Priority = "high"

	// PriorityUrgent marks work that should be given the tightest budget.
	PriorityUrgent Priority = "urgent"
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// Valid returns true if the priority is one of the known values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// ParsePriority converts a string to a Priority.
// Returns ErrInvalidPriority for unknown values.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// Task represents a unit of work to be processed.
type Task struct {
	// ID is the unique identifier, assigned by the store on creation
	// and immutable afterwards.
	ID string `json:"id"`

	// Title is a short non-empty description (1-255 characters).
	Title string `json:"title"`

	// Description is optional free-form detail.
	Description string `json:"description,omitempty"`

	// Priority is the scheduling hint for the executor.
	Priority Priority `json:"priority"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// CreatedAt is when the task was created. Immutable.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is refreshed on every mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// CompletedAt is set exactly when the task completes successfully,
	// cleared otherwise.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result is the output of a successful run.
	Result string `json:"result,omitempty"`

	// ErrorMessage records why the task failed.
	ErrorMessage string `json:"error_message,omitempty"`
}

// New returns a pending task with the given attributes.
// ID and timestamps are assigned by the store.
func New(title, description string, priority Priority) *Task {
	if priority == "" {
		priority = PriorityMedium
	}
	return &Task{
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      StatusPending,
	}
}

// Validate checks the task's user-supplied fields.
func (t *Task) Validate() error {
	if n := utf8.RuneCountInString(t.Title); n == 0 || n > MaxTitleLength {
		return ErrInvalidTitle
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	return nil
}

// Clone creates a deep copy of the task.
func (t *Task) Clone() *Task {
	clone := *t
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}
