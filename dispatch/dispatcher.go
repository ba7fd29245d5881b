package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/taskflow-go/taskflow/errors"
	"github.com/taskflow-go/taskflow/events"
	"github.com/taskflow-go/taskflow/logging"
	"github.com/taskflow-go/taskflow/store"
	"github.com/taskflow-go/taskflow/tasks"
	"github.com/taskflow-go/taskflow/telemetry"
)

// Dispatcher is the polling loop that claims pending tasks and drives
// them through the executor. It is an owned value: whoever constructs
// it controls its lifecycle through Start and Stop.
type Dispatcher struct {
	store   store.Store
	exec    Executor
	config  Config
	log     *logging.Logger
	emitter events.Emitter
	tracer  trace.Tracer

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	loopDone chan struct{}

	processed atomic.Uint64
	failed    atomic.Uint64
	inFlight  atomic.Int64
	fatal     atomic.Bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger. Defaults to a logger on stdout.
func WithLogger(log *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithEmitter sets the event emitter. Defaults to events.Nop.
func WithEmitter(emitter events.Emitter) DispatcherOption {
	return func(d *Dispatcher) {
		d.emitter = emitter
	}
}

// NewDispatcher creates a stopped dispatcher.
func NewDispatcher(s store.Store, exec Executor, config Config, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:   s,
		exec:    exec,
		config:  config.withDefaults(),
		log:     logging.New().WithComponent("dispatcher"),
		emitter: events.Nop{},
		tracer:  telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins the poll loop. Calling Start on a running dispatcher
// logs a warning and does nothing.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		d.log.Warn("dispatcher already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.loopDone = make(chan struct{})
	d.running = true
	d.fatal.Store(false)

	d.log.DispatcherStarted(d.config.Concurrency, d.config.PollInterval)
	d.emit(events.Event{Type: events.TypeDispatcherStarted})

	go d.run(ctx)
}

// Stop signals the loop to exit after the current iteration and waits
// for the in-flight batch to finish, or for ctx to end. In-flight
// executor calls are not cancelled; Stop only prevents new batches.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	cancel := d.cancel
	done := d.loopDone
	d.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	d.log.DispatcherStopped(d.processed.Load(), d.failed.Load())
	d.emit(events.Event{
		Type:      events.TypeDispatcherStopped,
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
	})
	return nil
}

// Running reports whether the poll loop is active.
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Counters returns the totals since construction.
func (d *Dispatcher) Counters() (processed, failed uint64, inFlight int) {
	return d.processed.Load(), d.failed.Load(), int(d.inFlight.Load())
}

// run is the main poll loop.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.loopDone)

	if d.config.HeartbeatInterval > 0 {
		go d.heartbeatLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if d.fatal.Load() {
			d.log.Error("dispatcher halting: store violated claim exclusivity")
			return
		}

		claimed, err := d.claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, errors.ErrCodeClaimRace) {
				// A broken claim means the store cannot be trusted.
				d.log.Error("claim race detected", map[string]interface{}{"error": err.Error()})
				return
			}
			d.log.Error("poll iteration failed", map[string]interface{}{"error": err.Error()})
			d.sleep(ctx, d.config.PollInterval)
			continue
		}

		if len(claimed) == 0 {
			d.sleep(ctx, d.config.PollInterval)
			continue
		}

		// One concurrent unit per claimed task. The batch is fully
		// joined before the next poll so no claimed task is abandoned
		// while the loop is alive. Stop cancels ctx to prevent new
		// batches, never the batch already claimed: execute and
		// persist run on a context detached from the stop signal, so
		// a ctx-respecting executor finishes and its outcome is
		// written even during shutdown.
		batchCtx := context.WithoutCancel(ctx)
		var wg sync.WaitGroup
		for _, t := range claimed {
			wg.Add(1)
			go func(t *tasks.Task) {
				defer wg.Done()
				d.processTask(batchCtx, t)
			}(t)
		}
		wg.Wait()
	}
}

// claim pulls the next batch inside a span.
func (d *Dispatcher) claim(ctx context.Context) ([]*tasks.Task, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.claim")
	defer span.End()

	claimed, err := d.store.ClaimPending(ctx, d.config.Concurrency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetBatchSize(span, len(claimed))
	return claimed, nil
}

// processTask runs one claimed task through the executor and records
// the outcome. Failures here never propagate to sibling tasks or the
// loop.
func (d *Dispatcher) processTask(ctx context.Context, t *tasks.Task) {
	ctx, span := d.tracer.Start(ctx, "dispatch.process", telemetry.WithTaskAttrs(t.ID, string(t.Priority)))
	defer span.End()

	if t.Status != tasks.StatusInProgress {
		// The store handed out a task it did not claim. Structurally
		// impossible with an atomic claim; treat the store as broken.
		d.fatal.Store(true)
		err := errors.ClaimRace(t.ID)
		telemetry.RecordError(span, err)
		d.log.Error("claimed task not in_progress", map[string]interface{}{
			"task":   t.ID,
			"status": string(t.Status),
		})
		return
	}

	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	d.log.TaskClaimed(t.ID)
	d.emit(events.Event{Type: events.TypeTaskClaimed, TaskID: t.ID, Status: string(t.Status)})

	start := time.Now()
	result, execErr := d.execute(ctx, t)
	now := time.Now().Truncate(time.Microsecond)

	if execErr != nil {
		if terr := t.MarkFailed(execErr.Error(), now); terr != nil {
			d.log.Error("failed transition rejected", map[string]interface{}{"task": t.ID, "error": terr.Error()})
			return
		}
		d.failed.Add(1)
		d.log.TaskFailed(t.ID, execErr.Error(), time.Since(start))
		telemetry.RecordError(span, execErr)
	} else {
		if terr := t.MarkCompleted(result.Payload, now); terr != nil {
			d.log.Error("completed transition rejected", map[string]interface{}{"task": t.ID, "error": terr.Error()})
			return
		}
		d.processed.Add(1)
		d.log.TaskCompleted(t.ID, time.Since(start))
	}

	d.persist(ctx, t)
}

// execute invokes the executor with panic containment.
func (d *Dispatcher) execute(ctx context.Context, t *tasks.Task) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.RecoverPanic(r)
		}
	}()
	return d.exec.Execute(ctx, t)
}

// persist writes the outcome back. A write failure leaves the task
// in_progress in the store; that is the known stuck case the operator
// reconciles, so it is logged loudly and not retried.
func (d *Dispatcher) persist(ctx context.Context, t *tasks.Task) {
	pctx, span := d.tracer.Start(ctx, "dispatch.persist", telemetry.WithTaskAttrs(t.ID, string(t.Priority)))
	defer span.End()

	if _, err := d.store.Update(pctx, t); err != nil {
		perr := errors.PersistenceFailed(t.ID, err)
		telemetry.RecordError(span, perr)
		d.log.StuckTask(t.ID, perr)
		return
	}

	switch t.Status {
	case tasks.StatusCompleted:
		d.emit(events.Event{Type: events.TypeTaskCompleted, TaskID: t.ID, Status: string(t.Status)})
	case tasks.StatusFailed:
		d.emit(events.Event{Type: events.TypeTaskFailed, TaskID: t.ID, Status: string(t.Status), Error: t.ErrorMessage})
	}
}

// heartbeatLoop emits periodic counter snapshots until ctx ends.
func (d *Dispatcher) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(d.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.emit(events.Event{
				Type:      events.TypeDispatcherHeartbeat,
				Processed: d.processed.Load(),
				Failed:    d.failed.Load(),
				InFlight:  int(d.inFlight.Load()),
			})
		}
	}
}

// sleep waits for the duration or until ctx ends.
func (d *Dispatcher) sleep(ctx context.Context, duration time.Duration) {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// emit publishes an event, ignoring emitter errors: events are a
// monitoring surface, never load-bearing.
func (d *Dispatcher) emit(e events.Event) {
	_ = d.emitter.Emit(e)
}
