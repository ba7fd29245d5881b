// Package tasks defines the task entity and its lifecycle state machine.
//
// A task moves along a fixed set of legal edges:
//
//	pending     -> in_progress (claim), cancelled
//	in_progress -> completed, failed, cancelled
//
// completed, failed and cancelled are terminal: no further dispatcher
// action occurs. The transition methods maintain the bookkeeping
// invariants: CompletedAt is non-nil exactly when the status is
// completed, and once a task is completed or failed exactly one of
// Result and ErrorMessage is set.
//
// # Basic Usage
//
//	t := tasks.New("resize image", "", tasks.PriorityHigh)
//	// store assigns ID/timestamps on Create
//
//	err := t.MarkClaimed(time.Now())     // pending -> in_progress
//	err = t.MarkCompleted("ok", time.Now())
//
// User-driven status changes go through SetStatus, which rejects
// illegal edges with ErrIllegalTransition instead of accepting
// arbitrary assignments. Claims and outcomes are rejected there too:
// in_progress is reachable only through MarkClaimed, and completed or
// failed only through MarkCompleted/MarkFailed with their payload.
package tasks
