package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/taskflow-go/taskflow/logging"
)

// DefaultTimeout bounds a full shutdown pass.
const DefaultTimeout = 30 * time.Second

// registration is one handler with its ordering phase.
type registration struct {
	name    string
	phase   int
	handler Handler
}

// Coordinator runs registered handlers in phase order on shutdown.
// Handlers in the same phase run concurrently; phases run one after
// another. A handler error is collected but never blocks later phases.
type Coordinator struct {
	timeout time.Duration
	log     *logging.Logger

	mu       sync.Mutex
	handlers []registration

	once    sync.Once
	done    chan struct{}
	err     error
	sigChan chan os.Signal
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTimeout bounds the whole shutdown pass. Defaults to
// DefaultTimeout.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(log *logging.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = log
	}
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		timeout: DefaultTimeout,
		log:     logging.New().WithComponent("shutdown"),
		done:    make(chan struct{}),
		sigChan: make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a handler to the given phase.
func (c *Coordinator) Register(name string, phase int, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: handler})
}

// RegisterFunc adds a plain function to the given phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, Func(fn))
}

// Shutdown runs every handler once. Later calls return the first
// call's result, or ErrAlreadyShutdown while it is still running.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	first := false
	c.once.Do(func() {
		first = true
		c.err = c.run(ctx)
		close(c.done)
	})
	if first {
		return c.err
	}
	select {
	case <-c.done:
		return c.err
	default:
		return ErrAlreadyShutdown
	}
}

// HandleSignals triggers Shutdown on SIGTERM or SIGINT.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-c.sigChan
		c.log.Info("signal received, shutting down", map[string]interface{}{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		_ = c.Shutdown(ctx)
	}()
}

// Done is closed when shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err reports the shutdown outcome. Nil before Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) error {
	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	start := time.Now()
	var failed []string

	for i := 0; i < len(handlers); {
		j := i
		for j < len(handlers) && handlers[j].phase == handlers[i].phase {
			j++
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, reg := range handlers[i:j] {
			wg.Add(1)
			go func(reg registration) {
				defer wg.Done()
				began := time.Now()
				err := reg.handler.OnShutdown(ctx)
				if err != nil {
					mu.Lock()
					failed = append(failed, reg.name)
					mu.Unlock()
					c.log.Error("component shutdown failed", map[string]interface{}{
						"component": reg.name,
						"error":     err.Error(),
					})
					return
				}
				c.log.Info("component stopped", map[string]interface{}{
					"component": reg.name,
					"took":      time.Since(began).String(),
				})
			}(reg)
		}
		wg.Wait()
		i = j
	}

	c.log.Info("shutdown complete", map[string]interface{}{"took": time.Since(start).String()})
	if len(failed) > 0 {
		return fmt.Errorf("%w: %v", ErrHandlerFailed, failed)
	}
	return nil
}
