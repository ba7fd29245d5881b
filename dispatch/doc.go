// Package dispatch polls the store for pending tasks and runs them.
//
// The Dispatcher claims up to Concurrency tasks per iteration through
// the store's atomic claim, runs each in its own goroutine, and writes
// the outcome back before the next poll. Exclusive ownership comes
// entirely from the claim: once a task is handed out it cannot be
// claimed again, so the executor never needs its own locking.
//
// Work is pluggable through the Executor interface. An executor error
// or panic marks that one task failed; sibling tasks and the poll loop
// are unaffected. SimExecutor provides the built-in simulated workload.
package dispatch
