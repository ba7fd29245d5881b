package tasks

import (
	"fmt"
	"time"
)

// legalEdges is the task lifecycle graph. A status absent from the map
// is terminal.
var legalEdges = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal edge.
// A same-status transition is always allowed as a no-op.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range legalEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MarkClaimed transitions the task from pending to in_progress.
// Stores perform this as part of their atomic claim; it exists
// separately so the edge is checked in exactly one place.
func (t *Task) MarkClaimed(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, StatusInProgress)
	}
	t.Status = StatusInProgress
	t.UpdatedAt = now
	return nil
}

// MarkCompleted transitions the task from in_progress to completed,
// recording the result and completion time.
func (t *Task) MarkCompleted(result string, now time.Time) error {
	if t.Status != StatusInProgress {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, StatusCompleted)
	}
	t.Status = StatusCompleted
	t.Result = result
	t.ErrorMessage = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// MarkFailed transitions the task from in_progress to failed,
// recording the error message.
func (t *Task) MarkFailed(message string, now time.Time) error {
	if t.Status != StatusInProgress {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, StatusFailed)
	}
	t.Status = StatusFailed
	t.ErrorMessage = message
	t.Result = ""
	t.CompletedAt = nil
	t.UpdatedAt = now
	return nil
}

// MarkCancelled transitions the task to cancelled from any
// non-terminal status.
func (t *Task) MarkCancelled(now time.Time) error {
	return t.SetStatus(StatusCancelled, now)
}

// SetStatus applies a user-requested status change, validating the
// edge. Illegal transitions are rejected rather than silently
// accepted. Two classes of legal edge are also off limits here
// because they carry state SetStatus cannot supply: in_progress is
// entered only through MarkClaimed (claims belong to the store), and
// completed/failed only through MarkCompleted/MarkFailed, which
// record the result or error those states require. That leaves
// cancellation and same-status no-ops, which is exactly the surface
// a user-driven update may touch.
func (t *Task) SetStatus(to Status, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if t.Status == to {
		return nil
	}
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, to)
	}
	switch to {
	case StatusInProgress:
		return fmt.Errorf("%w: %s -> %s: tasks enter in_progress only when claimed", ErrIllegalTransition, t.Status, to)
	case StatusCompleted, StatusFailed:
		return fmt.Errorf("%w: %s -> %s: outcome transitions carry a result or error", ErrIllegalTransition, t.Status, to)
	}
	t.Status = to
	t.CompletedAt = nil
	t.UpdatedAt = now
	return nil
}
