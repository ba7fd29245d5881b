package tasks

import (
	"errors"
	"testing"
	"time"
)

func pendingTask() *Task {
	t := New("sample", "", PriorityMedium)
	t.ID = "t1"
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return t
}

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusFailed},
		{StatusInProgress, StatusCancelled},
		{StatusPending, StatusPending}, // no-op
	}
	for _, e := range legal {
		if !CanTransition(e.from, e.to) {
			t.Errorf("Expected %s -> %s to be legal", e.from, e.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusCompleted, StatusPending},
		{StatusFailed, StatusInProgress},
		{StatusCancelled, StatusPending},
		{StatusCompleted, StatusFailed},
	}
	for _, e := range illegal {
		if CanTransition(e.from, e.to) {
			t.Errorf("Expected %s -> %s to be illegal", e.from, e.to)
		}
	}
}

func TestMarkClaimed(t *testing.T) {
	task := pendingTask()
	now := time.Now()

	if err := task.MarkClaimed(now); err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if task.Status != StatusInProgress {
		t.Errorf("Expected in_progress, got %s", task.Status)
	}
	if !task.UpdatedAt.Equal(now) {
		t.Error("Expected UpdatedAt refresh on claim")
	}

	// A second claim must fail.
	if err := task.MarkClaimed(now); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition on double claim, got %v", err)
	}
}

func TestMarkCompleted(t *testing.T) {
	task := pendingTask()
	now := time.Now()

	// Direct pending -> completed is illegal.
	if err := task.MarkCompleted("ok", now); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition, got %v", err)
	}

	if err := task.MarkClaimed(now); err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if err := task.MarkCompleted("ok", now); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	if task.Status != StatusCompleted {
		t.Errorf("Expected completed, got %s", task.Status)
	}
	if task.Result != "ok" {
		t.Errorf("Expected result ok, got %q", task.Result)
	}
	if task.ErrorMessage != "" {
		t.Errorf("Expected empty error message, got %q", task.ErrorMessage)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Error("Expected CompletedAt set on completion")
	}
}

func TestMarkFailed(t *testing.T) {
	task := pendingTask()
	now := time.Now()

	if err := task.MarkClaimed(now); err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if err := task.MarkFailed("boom", now); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	if task.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", task.Status)
	}
	if task.ErrorMessage != "boom" {
		t.Errorf("Expected error message boom, got %q", task.ErrorMessage)
	}
	if task.Result != "" {
		t.Errorf("Expected empty result, got %q", task.Result)
	}
	if task.CompletedAt != nil {
		t.Error("Expected nil CompletedAt on failure")
	}
}

func TestSetStatusRejectsIllegal(t *testing.T) {
	task := pendingTask()
	now := time.Now()

	if err := task.SetStatus(StatusCompleted, now); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition for pending -> completed, got %v", err)
	}
	if err := task.SetStatus("archived", now); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}

	// Status must be unchanged after rejections.
	if task.Status != StatusPending {
		t.Errorf("Expected status to remain pending, got %s", task.Status)
	}
}

func TestSetStatusRejectsClaimEdge(t *testing.T) {
	task := pendingTask()
	now := time.Now()

	// pending -> in_progress is a legal lifecycle edge, but only a
	// store claim may walk it.
	if err := task.SetStatus(StatusInProgress, now); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition for user claim, got %v", err)
	}
	if task.Status != StatusPending {
		t.Errorf("Expected status to remain pending, got %s", task.Status)
	}

	// Already in_progress: same-status write stays a no-op.
	if err := task.MarkClaimed(now); err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if err := task.SetStatus(StatusInProgress, now); err != nil {
		t.Errorf("Expected same-status no-op, got %v", err)
	}
}

func TestSetStatusRejectsBareOutcomes(t *testing.T) {
	task := pendingTask()
	now := time.Now()
	if err := task.MarkClaimed(now); err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}

	// completed and failed carry a result or error; a bare status
	// write would leave a terminal task with neither.
	if err := task.SetStatus(StatusCompleted, now); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition for bare completion, got %v", err)
	}
	if err := task.SetStatus(StatusFailed, now); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition for bare failure, got %v", err)
	}
	if task.Status != StatusInProgress {
		t.Errorf("Expected status unchanged, got %s", task.Status)
	}
}

func TestSetStatusCancel(t *testing.T) {
	task := pendingTask()
	now := time.Now()

	if err := task.SetStatus(StatusCancelled, now); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if task.Status != StatusCancelled {
		t.Errorf("Expected cancelled, got %s", task.Status)
	}

	// Terminal: nothing further is legal except the same status.
	if err := task.SetStatus(StatusPending, now); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition from cancelled, got %v", err)
	}
	if err := task.SetStatus(StatusCancelled, now); err != nil {
		t.Errorf("Expected same-status no-op, got %v", err)
	}
}

func TestSetStatusClearsCompletedAt(t *testing.T) {
	task := pendingTask()
	now := time.Now()

	if err := task.MarkClaimed(now); err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if err := task.SetStatus(StatusCancelled, now); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if task.CompletedAt != nil {
		t.Error("Expected nil CompletedAt after cancellation")
	}
}
