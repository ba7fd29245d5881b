package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrClosed        = errors.New("limiter closed")
	ErrClientUnknown = errors.New("unknown client")
)

// Limiter hands out request tokens per client key.
type Limiter interface {
	// Acquire blocks until a token is available for the client, or
	// until ctx ends.
	Acquire(ctx context.Context, client string) error

	// TryAcquire takes a token without blocking. Returns false when
	// the client is out of budget.
	TryAcquire(client string) bool

	// SetCapacity configures the budget for one client: capacity
	// tokens refilled continuously over window. Non-positive values
	// remove the client's bucket.
	SetCapacity(client string, capacity int, window time.Duration)

	// GetCapacity returns the client's current budget, or nil if the
	// client has no bucket.
	GetCapacity(client string) *Capacity

	// Close shuts the limiter down. Blocked Acquire calls return
	// ErrClosed.
	Close() error
}

// Capacity is a snapshot of one client's budget.
type Capacity struct {
	// Client is the bucket key, typically an API key or remote host.
	Client string

	// Available is the number of tokens left right now.
	Available int

	// Total is the bucket size, in tokens per window.
	Total int

	// Window is the refill period.
	Window time.Duration
}
