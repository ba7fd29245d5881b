package shutdown

import (
	"context"
	"errors"
)

// Common errors.
var (
	// ErrAlreadyShutdown indicates shutdown was already initiated.
	ErrAlreadyShutdown = errors.New("shutdown already initiated")

	// ErrHandlerFailed indicates one or more handlers failed.
	ErrHandlerFailed = errors.New("one or more handlers failed")
)

// Daemon phases, shut down in ascending order. The API goes first so
// no new tasks arrive while the dispatcher drains; infrastructure
// closes last so in-flight outcomes can still be persisted and
// announced.
const (
	PhaseAPI        = 10
	PhaseDispatcher = 20
	PhaseInfra      = 30
)

// Handler is implemented by components that need graceful shutdown.
// The context is cancelled when the shutdown deadline passes.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// Func adapts a function to the Handler interface.
type Func func(ctx context.Context) error

// OnShutdown implements Handler.
func (f Func) OnShutdown(ctx context.Context) error {
	return f(ctx)
}
