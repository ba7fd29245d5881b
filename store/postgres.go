package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskflow-go/taskflow/errors"
	"github.com/taskflow-go/taskflow/tasks"
)

// taskColumns is the column list shared by every query that scans a task.
const taskColumns = "id, title, description, priority, status, created_at, updated_at, completed_at, result, error_message"

// PgStore is a PostgreSQL-backed task store.
// The pool is owned by the store and closed with it.
type PgStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool against the given URL and verifies the
// connection.
func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// NewPgStore creates a PgStore on top of an open pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the tasks table and its indexes if they don't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT PRIMARY KEY,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			priority      TEXT NOT NULL DEFAULT 'medium'
				CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
			status        TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'in_progress', 'completed', 'failed', 'cancelled')),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at  TIMESTAMPTZ,
			result        TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return err
	}
	// Partial index keeps the claim's pending scan cheap.
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_pending_created
		ON tasks(created_at DESC) WHERE status = 'pending'`)
	return err
}

// Create inserts a new task with a fresh ID and timestamps.
func (s *PgStore) Create(ctx context.Context, t *tasks.Task) (*tasks.Task, error) {
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
	stored.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	stored.CreatedAt = now
	stored.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, title, description, priority, status, created_at, updated_at, completed_at, result, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		stored.ID, stored.Title, stored.Description, stored.Priority, stored.Status,
		stored.CreatedAt, stored.UpdatedAt, stored.CompletedAt, stored.Result, stored.ErrorMessage)
	if err != nil {
		return nil, errors.Wrap(err, "create task")
	}
	return stored, nil
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*tasks.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound(id)
		}
		return nil, errors.Wrap(err, "get task", errors.WithTaskID(id))
	}
	return t, nil
}

// List returns tasks matching the filter, newest-created first.
func (s *PgStore) List(ctx context.Context, f Filter) ([]*tasks.Task, error) {
	f = f.normalize()

	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIdx)
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Priority != nil {
		if f.Status != nil {
			query += fmt.Sprintf(" AND priority = $%d", argIdx)
		} else {
			query += fmt.Sprintf(" WHERE priority = $%d", argIdx)
		}
		args = append(args, *f.Priority)
		argIdx++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC OFFSET $%d LIMIT $%d", argIdx, argIdx+1)
	args = append(args, f.Skip, f.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// Update persists the task's mutable fields. ID and CreatedAt never change.
func (s *PgStore) Update(ctx context.Context, t *tasks.Task) (*tasks.Task, error) {
	if err := t.Validate(); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	now := time.Now().Truncate(time.Microsecond)
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, priority = $4, status = $5,
		    updated_at = $6, completed_at = $7, result = $8, error_message = $9
		WHERE id = $1
		RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, t.Priority, t.Status,
		now, t.CompletedAt, t.Result, t.ErrorMessage)

	updated, err := scanTask(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound(t.ID)
		}
		return nil, errors.Wrap(err, "update task", errors.WithTaskID(t.ID))
	}
	return updated, nil
}

// Delete removes a task by ID.
func (s *PgStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete task", errors.WithTaskID(id))
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimPending atomically claims up to maxCount pending tasks.
// FOR UPDATE SKIP LOCKED makes concurrent claimants, including other
// processes on the same database, skip rows another transaction is
// claiming, so no task is ever handed out twice. The transaction ends
// before this function returns; no lock outlives the claim.
func (s *PgStore) ClaimPending(ctx context.Context, maxCount int) ([]*tasks.Task, error) {
	if maxCount <= 0 {
		return []*tasks.Task{}, nil
	}

	now := time.Now().Truncate(time.Microsecond)
	rows, err := s.pool.Query(ctx, `
		UPDATE tasks
		SET status = 'in_progress', updated_at = $2
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = 'pending'
			ORDER BY created_at DESC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+taskColumns,
		maxCount, now)
	if err != nil {
		return nil, errors.Wrap(err, "claim pending tasks")
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// CountByStatus counts tasks in the given status.
func (s *PgStore) CountByStatus(ctx context.Context, status tasks.Status) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count by status")
	}
	return n, nil
}

// Stats returns counts for all five statuses in one query.
func (s *PgStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "task stats")
	}
	defer rows.Close()

	stats := &Stats{}
	for rows.Next() {
		var status tasks.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "scan stats row")
		}
		switch status {
		case tasks.StatusPending:
			stats.Pending = n
		case tasks.StatusInProgress:
			stats.InProgress = n
		case tasks.StatusCompleted:
			stats.Completed = n
		case tasks.StatusFailed:
			stats.Failed = n
		case tasks.StatusCancelled:
			stats.Cancelled = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "stats row iteration")
	}
	return stats, nil
}

// Close closes the underlying pool.
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// scanTask reads one task from a row.
func scanTask(row pgx.Row) (*tasks.Task, error) {
	var t tasks.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.Result, &t.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTaskRows reads all tasks from a result set.
func scanTaskRows(rows pgx.Rows) ([]*tasks.Task, error) {
	var list []*tasks.Task
	for rows.Next() {
		var t tasks.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status,
			&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.Result, &t.ErrorMessage); err != nil {
			return nil, errors.Wrap(err, "scan task row")
		}
		list = append(list, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration")
	}
	if list == nil {
		list = []*tasks.Task{}
	}
	return list, nil
}
