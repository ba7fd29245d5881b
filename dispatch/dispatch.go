package dispatch

import (
	"context"
	"time"

	"github.com/taskflow-go/taskflow/tasks"
)

// Result is the successful outcome of executing a task.
type Result struct {
	// Payload is recorded as the task's result string.
	Payload string
}

// Executor performs the actual work a task represents.
//
// Implementations may consult the task's Priority to pick a time
// budget or queue class, but must respect ctx and must not outlive
// their concurrent slot. Returning an error (or panicking) marks the
// task failed with that message.
type Executor interface {
	Execute(ctx context.Context, t *tasks.Task) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, t *tasks.Task) (Result, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, t *tasks.Task) (Result, error) {
	return f(ctx, t)
}

// Default dispatcher settings, matching the daemon defaults.
const (
	DefaultConcurrency       = 4
	DefaultPollInterval      = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
)

// Config holds dispatcher settings. The zero value gets defaults.
type Config struct {
	// Concurrency is the maximum number of tasks claimed and executed
	// per poll iteration.
	Concurrency int

	// PollInterval is how long the loop sleeps when no pending work
	// exists, and how long it backs off after an unexpected error.
	PollInterval time.Duration

	// HeartbeatInterval is how often the dispatcher emits a heartbeat
	// event with its counters. Zero disables heartbeats.
	HeartbeatInterval time.Duration
}

// withDefaults fills in zero fields.
func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}
