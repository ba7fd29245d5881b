// Package store provides durable task persistence with an atomic
// claim primitive.
//
// Two backends implement the Store interface:
//
//   - MemoryStore: mutex-guarded map for tests and single-process use
//   - PgStore: PostgreSQL via pgx, safe across multiple processes
//
// # The claim primitive
//
// ClaimPending is the one correctness-critical operation: it must
// transition the returned tasks from pending to in_progress as part of
// the read itself, so concurrent dispatchers never double-claim. The
// memory backend does the whole pass under one lock; the Postgres
// backend uses a single statement:
//
//	UPDATE tasks SET status = 'in_progress', ...
//	WHERE id IN (SELECT id FROM tasks WHERE status = 'pending'
//	             ORDER BY created_at DESC LIMIT n
//	             FOR UPDATE SKIP LOCKED)
//	RETURNING ...
//
// Rows another transaction holds are skipped, not waited on, so the
// claim completes in bounded time and holds no lock once it returns.
package store
