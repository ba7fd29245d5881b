package store

import (
	"context"

	"github.com/taskflow-go/taskflow/tasks"
)

// Pagination bounds for List.
const (
	// DefaultLimit is used when a filter does not set one.
	DefaultLimit = 100

	// MaxLimit caps a single List page.
	MaxLimit = 1000
)

// Filter narrows a List call. Nil status/priority mean no filtering.
type Filter struct {
	// Status filters to a single lifecycle state.
	Status *tasks.Status

	// Priority filters to a single priority.
	Priority *tasks.Priority

	// Skip is the number of matching tasks to skip. Negative values
	// are treated as zero.
	Skip int

	// Limit is the page size, clamped to [1, MaxLimit].
	// Zero means DefaultLimit.
	Limit int
}

// normalize clamps pagination to the configured bounds.
func (f Filter) normalize() Filter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Stats holds the count of tasks per status.
type Stats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// ByStatus returns the count for a single status.
func (s *Stats) ByStatus(status tasks.Status) int {
	switch status {
	case tasks.StatusPending:
		return s.Pending
	case tasks.StatusInProgress:
		return s.InProgress
	case tasks.StatusCompleted:
		return s.Completed
	case tasks.StatusFailed:
		return s.Failed
	case tasks.StatusCancelled:
		return s.Cancelled
	default:
		return 0
	}
}

// Store is the contract for durable task persistence.
type Store interface {
	// Create assigns an ID and timestamps, persists the task, and
	// returns the stored record.
	Create(ctx context.Context, t *tasks.Task) (*tasks.Task, error)

	// Get retrieves a task by ID.
	// Returns a NOT_FOUND error if the task does not exist.
	Get(ctx context.Context, id string) (*tasks.Task, error)

	// List returns tasks matching the filter, newest-created first.
	List(ctx context.Context, f Filter) ([]*tasks.Task, error)

	// Update persists the task's mutable fields and refreshes
	// UpdatedAt. ID and CreatedAt are immutable; the stored values win.
	// Returns a NOT_FOUND error if the task does not exist.
	Update(ctx context.Context, t *tasks.Task) (*tasks.Task, error)

	// Delete removes a task by ID. Returns true if a record existed
	// and was removed; deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) (bool, error)

	// ClaimPending atomically transitions up to maxCount pending tasks
	// to in_progress and returns them. No two concurrent callers,
	// in-process or across processes sharing the store, ever receive
	// the same task. The claim finishes before any work starts; no
	// lock is held afterwards.
	ClaimPending(ctx context.Context, maxCount int) ([]*tasks.Task, error)

	// CountByStatus returns the number of tasks in the given status.
	CountByStatus(ctx context.Context, status tasks.Status) (int, error)

	// Stats returns counts for all five statuses.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources held by the store.
	Close() error
}
