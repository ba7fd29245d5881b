package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/taskflow-go/taskflow/errors"
	"github.com/taskflow-go/taskflow/tasks"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *MemoryStore, title string, priority tasks.Priority) *tasks.Task {
	t.Helper()
	created, err := s.Create(context.Background(), tasks.New(title, "", priority))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return created
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	s := newTestStore(t)

	created := mustCreate(t, s, "first", tasks.PriorityHigh)

	if created.ID == "" {
		t.Fatal("Expected non-empty ID")
	}
	if created.Status != tasks.StatusPending {
		t.Errorf("Expected pending, got %s", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}
	if created.Result != "" || created.ErrorMessage != "" {
		t.Error("Expected empty result and error on a new task")
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create(context.Background(), tasks.New("", "", tasks.PriorityLow))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Sequenced IDs keep ordering deterministic even when creation
	// timestamps collide.
	seq := 0
	s.idGen = func() string {
		seq++
		return fmt.Sprintf("t-%03d", seq)
	}

	for i := 0; i < 10; i++ {
		mustCreate(t, s, fmt.Sprintf("task %d", i), tasks.PriorityMedium)
		time.Sleep(time.Millisecond)
	}

	page, err := s.List(ctx, Filter{Skip: 2, Limit: 3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(page))
	}

	// Newest-created first: skip=2 starts at "task 7".
	if page[0].Title != "task 7" {
		t.Errorf("Expected task 7 first, got %s", page[0].Title)
	}
	for i := 1; i < len(page); i++ {
		if page[i].CreatedAt.After(page[i-1].CreatedAt) {
			t.Error("Expected descending creation order")
		}
	}

	// Skip past the end yields an empty page, not an error.
	empty, err := s.List(ctx, Filter{Skip: 100})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty page, got %d tasks", len(empty))
	}

	// Negative skip is treated as zero.
	all, err := s.List(ctx, Filter{Skip: -5})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 10 {
		t.Errorf("Expected 10 tasks, got %d", len(all))
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, "low one", tasks.PriorityLow)
	mustCreate(t, s, "high one", tasks.PriorityHigh)
	high2 := mustCreate(t, s, "high two", tasks.PriorityHigh)

	high2.Status = tasks.StatusCancelled
	if _, err := s.Update(ctx, high2); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	highPri := tasks.PriorityHigh
	got, err := s.List(ctx, Filter{Priority: &highPri})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 high-priority tasks, got %d", len(got))
	}

	pending := tasks.StatusPending
	got, err = s.List(ctx, Filter{Priority: &highPri, Status: &pending})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "high one" {
		t.Errorf("Expected only pending high one, got %v", got)
	}
}

func TestUpdateImmutableFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, "original", tasks.PriorityLow)

	mutated := created.Clone()
	mutated.Title = "renamed"
	mutated.CreatedAt = created.CreatedAt.Add(-time.Hour)

	updated, err := s.Update(ctx, mutated)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "renamed" {
		t.Errorf("Expected renamed, got %s", updated.Title)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("Expected CreatedAt to be immutable")
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("Expected UpdatedAt refresh")
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t)

	ghost := tasks.New("ghost", "", tasks.PriorityLow)
	ghost.ID = "missing"
	_, err := s.Update(context.Background(), ghost)
	if !errors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, "delete me", tasks.PriorityLow)

	removed, err := s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Error("Expected first delete to report removal")
	}

	removed, err = s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if removed {
		t.Error("Expected second delete to report no removal")
	}
}

func TestClaimPendingTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustCreate(t, s, fmt.Sprintf("work %d", i), tasks.PriorityMedium)
	}

	claimed, err := s.ClaimPending(ctx, 2)
	if err != nil {
		t.Fatalf("ClaimPending failed: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("Expected 2 claimed, got %d", len(claimed))
	}
	for _, c := range claimed {
		if c.Status != tasks.StatusInProgress {
			t.Errorf("Expected in_progress, got %s", c.Status)
		}
		stored, err := s.Get(ctx, c.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if stored.Status != tasks.StatusInProgress {
			t.Errorf("Expected stored status in_progress, got %s", stored.Status)
		}
	}

	n, err := s.CountByStatus(ctx, tasks.StatusPending)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 pending left, got %d", n)
	}
}

func TestClaimExclusivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const total = 50
	for i := 0; i < total; i++ {
		mustCreate(t, s, fmt.Sprintf("work %d", i), tasks.PriorityMedium)
	}

	// Many concurrent claimants; the union of their results must
	// contain no duplicates and no more than the pending count.
	const claimants = 10
	results := make([][]*tasks.Task, claimants)
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			claimed, err := s.ClaimPending(ctx, 8)
			if err != nil {
				t.Errorf("ClaimPending failed: %v", err)
				return
			}
			results[idx] = claimed
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	claimedTotal := 0
	for _, batch := range results {
		for _, c := range batch {
			if seen[c.ID] {
				t.Errorf("Task %s claimed twice", c.ID)
			}
			seen[c.ID] = true
			claimedTotal++
		}
	}
	if claimedTotal > total {
		t.Errorf("Claimed %d tasks, only %d existed", claimedTotal, total)
	}

	pending, err := s.CountByStatus(ctx, tasks.StatusPending)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if pending+claimedTotal != total {
		t.Errorf("Expected pending (%d) + claimed (%d) == %d", pending, claimedTotal, total)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustCreate(t, s, fmt.Sprintf("work %d", i), tasks.PriorityMedium)
	}

	claimed, err := s.ClaimPending(ctx, 2)
	if err != nil {
		t.Fatalf("ClaimPending failed: %v", err)
	}
	now := time.Now()
	if err := claimed[0].MarkCompleted("done", now); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if _, err := s.Update(ctx, claimed[0]); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := claimed[1].MarkFailed("boom", now); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if _, err := s.Update(ctx, claimed[1]); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := Stats{Pending: 1, Completed: 1, Failed: 1}
	if *stats != want {
		t.Errorf("Expected %+v, got %+v", want, *stats)
	}
}

func TestClosedStore(t *testing.T) {
	s := NewMemoryStore()
	s.Close()

	if _, err := s.Get(context.Background(), "x"); !errors.Is(err, errors.ErrCodeStoreClosed) {
		t.Errorf("Expected STORE_CLOSED, got %v", err)
	}
	if _, err := s.ClaimPending(context.Background(), 1); !errors.Is(err, errors.ErrCodeStoreClosed) {
		t.Errorf("Expected STORE_CLOSED, got %v", err)
	}
}
