// Package results lets in-process callers block on a task's outcome.
//
// A Waiter combines the event stream with store polling: events give
// low latency, polling guarantees progress when an event is dropped.
// The store stays the source of truth; the returned task is always a
// fresh read.
package results
