package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/taskflow-go/taskflow/errors"
	"github.com/taskflow-go/taskflow/tasks"
)

// MemoryStore implements Store using in-memory storage.
// Useful for testing and single-process scenarios.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]*tasks.Task
	closed atomic.Bool
	idGen  func() string
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithIDGenerator sets a custom ID generator function.
func WithIDGenerator(gen func() string) MemoryOption {
	return func(s *MemoryStore) {
		s.idGen = gen
	}
}

// NewMemoryStore creates a new in-memory task store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data:  make(map[string]*tasks.Task),
		idGen: generateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generateID creates a time-ordered unique task ID.
func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Create assigns an ID and timestamps and persists the task.
func (s *MemoryStore) Create(ctx context.Context, t *tasks.Task) (*tasks.Task, error) {
	if s.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeStoreClosed)
	}
	if t.Status == "" {
		t.Status = tasks.StatusPending
	}
	if t.Priority == "" {
		t.Priority = tasks.PriorityMedium
	}
	if err := t.Validate(); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	stored := t.Clone()
	stored.ID = s.idGen()
	now := time.Now().Truncate(time.Microsecond)
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[stored.ID] = stored

	return stored.Clone(), nil
}

// Get retrieves a task by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*tasks.Task, error) {
	if s.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeStoreClosed)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	return t.Clone(), nil
}

// List returns tasks matching the filter, newest-created first.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*tasks.Task, error) {
	if s.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeStoreClosed)
	}
	f = f.normalize()

	s.mu.RLock()
	matched := make([]*tasks.Task, 0, len(s.data))
	for _, t := range s.data {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		matched = append(matched, t)
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)

	if f.Skip >= len(matched) {
		return []*tasks.Task{}, nil
	}
	matched = matched[f.Skip:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]*tasks.Task, len(matched))
	for i, t := range matched {
		out[i] = t.Clone()
	}
	return out, nil
}

// sortNewestFirst orders by creation time descending, ID as tiebreak
// so pagination windows are stable.
func sortNewestFirst(list []*tasks.Task) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

// Update persists the task's mutable fields.
func (s *MemoryStore) Update(ctx context.Context, t *tasks.Task) (*tasks.Task, error) {
	if s.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeStoreClosed)
	}
	if err := t.Validate(); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[t.ID]
	if !ok {
		return nil, errors.NotFound(t.ID)
	}

	stored := t.Clone()
	stored.CreatedAt = existing.CreatedAt // immutable
	stored.UpdatedAt = time.Now().Truncate(time.Microsecond)
	s.data[t.ID] = stored

	return stored.Clone(), nil
}

// Delete removes a task by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	if s.closed.Load() {
		return false, errors.FromCode(errors.ErrCodeStoreClosed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

// ClaimPending atomically claims up to maxCount pending tasks.
// The whole pass happens under one lock, so concurrent claimants can
// never receive overlapping sets.
func (s *MemoryStore) ClaimPending(ctx context.Context, maxCount int) ([]*tasks.Task, error) {
	if s.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeStoreClosed)
	}
	if maxCount <= 0 {
		return []*tasks.Task{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]*tasks.Task, 0, maxCount)
	for _, t := range s.data {
		if t.Status == tasks.StatusPending {
			pending = append(pending, t)
		}
	}
	sortNewestFirst(pending)

	if len(pending) > maxCount {
		pending = pending[:maxCount]
	}

	now := time.Now().Truncate(time.Microsecond)
	claimed := make([]*tasks.Task, 0, len(pending))
	for _, t := range pending {
		if err := t.MarkClaimed(now); err != nil {
			// Cannot happen while the lock is held.
			return nil, errors.ClaimRace(t.ID, errors.WithCause(err))
		}
		claimed = append(claimed, t.Clone())
	}
	return claimed, nil
}

// CountByStatus returns the number of tasks in the given status.
func (s *MemoryStore) CountByStatus(ctx context.Context, status tasks.Status) (int, error) {
	if s.closed.Load() {
		return 0, errors.FromCode(errors.ErrCodeStoreClosed)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.data {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

// Stats returns counts for all five statuses.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	if s.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeStoreClosed)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{}
	for _, t := range s.data {
		switch t.Status {
		case tasks.StatusPending:
			stats.Pending++
		case tasks.StatusInProgress:
			stats.InProgress++
		case tasks.StatusCompleted:
			stats.Completed++
		case tasks.StatusFailed:
			stats.Failed++
		case tasks.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// Close releases the store. Subsequent calls fail with STORE_CLOSED.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}
