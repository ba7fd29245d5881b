package results

import (
	"context"
	"time"

	"github.com/taskflow-go/taskflow/events"
	"github.com/taskflow-go/taskflow/store"
	"github.com/taskflow-go/taskflow/tasks"
)

// DefaultPollInterval is the fallback poll cadence while waiting.
const DefaultPollInterval = 250 * time.Millisecond

// Waiter blocks callers until a task reaches a terminal status. It
// listens on the event stream when one is configured and polls the
// store as a fallback, so a dropped event never strands a waiter.
type Waiter struct {
	store        store.Store
	stream       events.Stream
	pollInterval time.Duration
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithStream attaches an event stream. Terminal events short-circuit
// the poll wait.
func WithStream(stream events.Stream) Option {
	return func(w *Waiter) {
		w.stream = stream
	}
}

// WithPollInterval overrides the fallback poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// NewWaiter creates a waiter over the given store.
func NewWaiter(s store.Store, opts ...Option) *Waiter {
	w := &Waiter{
		store:        s,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait blocks until the task is completed, failed, or cancelled, and
// returns its terminal snapshot. It returns the store's not-found
// error if the task does not exist, and ctx.Err() if the context ends
// first.
func (w *Waiter) Wait(ctx context.Context, taskID string) (*tasks.Task, error) {
	// Fast path: the task may already be terminal.
	t, err := w.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return t, nil
	}

	var eventCh <-chan events.Event
	if w.stream != nil {
		sub, err := w.stream.Subscribe()
		if err == nil {
			defer sub.Unsubscribe()
			eventCh = sub.Events()
		}
		// A failed subscribe degrades to polling.
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case e, ok := <-eventCh:
			if !ok {
				eventCh = nil
				continue
			}
			if e.TaskID != taskID || !terminalEvent(e.Type) {
				continue
			}
			// Re-read: the store is the source of truth and the event
			// may carry a stale snapshot.
			return w.getTerminal(ctx, taskID)
		case <-ticker.C:
			t, err := w.store.Get(ctx, taskID)
			if err != nil {
				return nil, err
			}
			if t.Status.IsTerminal() {
				return t, nil
			}
		}
	}
}

// getTerminal reads until the store shows a terminal status. The event
// can outrun the write by a beat when the emitter and store are
// separate backends.
func (w *Waiter) getTerminal(ctx context.Context, taskID string) (*tasks.Task, error) {
	for {
		t, err := w.store.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if t.Status.IsTerminal() {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func terminalEvent(t events.Type) bool {
	switch t {
	case events.TypeTaskCompleted, events.TypeTaskFailed, events.TypeTaskCancelled:
		return true
	default:
		return false
	}
}
