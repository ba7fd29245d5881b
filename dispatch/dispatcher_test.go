package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taskflow-go/taskflow/events"
	"github.com/taskflow-go/taskflow/logging"
	"github.com/taskflow-go/taskflow/store"
	"github.com/taskflow-go/taskflow/tasks"
)

// fastConfig polls quickly so tests finish in milliseconds.
func fastConfig(concurrency int) Config {
	return Config{
		Concurrency:  concurrency,
		PollInterval: 5 * time.Millisecond,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", msg)
}

func seedPending(t *testing.T, s store.Store, n int) []*tasks.Task {
	t.Helper()
	created := make([]*tasks.Task, 0, n)
	for i := 0; i < n; i++ {
		task, err := s.Create(context.Background(), tasks.New(fmt.Sprintf("job %d", i), "", tasks.PriorityHigh))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		created = append(created, task)
	}
	return created
}

func stopDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestDispatcherProcessesTask(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	created := seedPending(t, s, 1)

	exec := ExecutorFunc(func(ctx context.Context, task *tasks.Task) (Result, error) {
		return Result{Payload: "ok"}, nil
	})

	d := NewDispatcher(s, exec, fastConfig(2))
	d.Start()
	defer stopDispatcher(t, d)

	waitFor(t, 2*time.Second, func() bool {
		got, err := s.Get(context.Background(), created[0].ID)
		return err == nil && got.Status == tasks.StatusCompleted
	}, "task completion")

	got, err := s.Get(context.Background(), created[0].ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Result != "ok" {
		t.Errorf("Expected result 'ok', got %q", got.Result)
	}
	if got.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
	if got.ErrorMessage != "" {
		t.Errorf("Expected no error message, got %q", got.ErrorMessage)
	}
}

func TestDispatcherDrainsBacklog(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	seedPending(t, s, 5)

	var mu sync.Mutex
	seen := make(map[string]int)

	exec := ExecutorFunc(func(ctx context.Context, task *tasks.Task) (Result, error) {
		mu.Lock()
		seen[task.ID]++
		mu.Unlock()
		return Result{Payload: "done"}, nil
	})

	d := NewDispatcher(s, exec, fastConfig(2))
	d.Start()
	defer stopDispatcher(t, d)

	waitFor(t, 2*time.Second, func() bool {
		stats, err := s.Stats(context.Background())
		return err == nil && stats.Completed == 5
	}, "backlog drain")

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 5 {
		t.Errorf("Expected 5 distinct tasks executed, got %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("Task %s executed %d times, expected exactly once", id, n)
		}
	}

	processed, failed, _ := d.Counters()
	if processed != 5 || failed != 0 {
		t.Errorf("Expected counters (5, 0), got (%d, %d)", processed, failed)
	}
}

func TestExecutorFailureMarksTaskFailed(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	created := seedPending(t, s, 1)

	exec := ExecutorFunc(func(ctx context.Context, task *tasks.Task) (Result, error) {
		return Result{}, fmt.Errorf("downstream unavailable")
	})

	d := NewDispatcher(s, exec, fastConfig(1))
	d.Start()
	defer stopDispatcher(t, d)

	waitFor(t, 2*time.Second, func() bool {
		got, err := s.Get(context.Background(), created[0].ID)
		return err == nil && got.Status == tasks.StatusFailed
	}, "task failure")

	got, _ := s.Get(context.Background(), created[0].ID)
	if got.ErrorMessage != "downstream unavailable" {
		t.Errorf("Expected error message preserved, got %q", got.ErrorMessage)
	}
	if got.Result != "" {
		t.Errorf("Expected empty result on failure, got %q", got.Result)
	}
	if got.CompletedAt != nil {
		t.Error("Expected CompletedAt to stay nil on failure")
	}
}

func TestExecutorPanicIsContained(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	bad, err := s.Create(context.Background(), tasks.New("explodes", "", tasks.PriorityHigh))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	good, err := s.Create(context.Background(), tasks.New("survives", "", tasks.PriorityHigh))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	exec := ExecutorFunc(func(ctx context.Context, task *tasks.Task) (Result, error) {
		if task.ID == bad.ID {
			panic("executor bug")
		}
		return Result{Payload: "fine"}, nil
	})

	log := logging.New()
	log.SetOutput(&bytes.Buffer{})

	d := NewDispatcher(s, exec, fastConfig(2), WithLogger(log))
	d.Start()
	defer stopDispatcher(t, d)

	waitFor(t, 2*time.Second, func() bool {
		b, err1 := s.Get(context.Background(), bad.ID)
		g, err2 := s.Get(context.Background(), good.ID)
		return err1 == nil && err2 == nil &&
			b.Status == tasks.StatusFailed && g.Status == tasks.StatusCompleted
	}, "both tasks to settle")

	b, _ := s.Get(context.Background(), bad.ID)
	if !strings.Contains(b.ErrorMessage, "executor bug") {
		t.Errorf("Expected panic message in error, got %q", b.ErrorMessage)
	}
	g, _ := s.Get(context.Background(), good.ID)
	if g.Result != "fine" {
		t.Errorf("Expected sibling task unaffected, got result %q", g.Result)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	var buf bytes.Buffer
	log := logging.New()
	log.SetOutput(&buf)

	d := NewDispatcher(s, NewSimExecutor(), fastConfig(1), WithLogger(log))
	d.Start()
	defer stopDispatcher(t, d)

	d.Start()
	if !d.Running() {
		t.Error("Expected dispatcher to stay running")
	}
	if !strings.Contains(buf.String(), "already running") {
		t.Error("Expected a warning on double Start")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	d := NewDispatcher(s, NewSimExecutor(), fastConfig(1))
	if err := d.Stop(context.Background()); err != nil {
		t.Errorf("Stop on a stopped dispatcher returned %v", err)
	}
	if d.Running() {
		t.Error("Expected Running to be false")
	}
}

func TestStopWaitsForInFlightBatch(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	created := seedPending(t, s, 1)

	started := make(chan struct{})
	exec := ExecutorFunc(func(ctx context.Context, task *tasks.Task) (Result, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return Result{Payload: "slow"}, nil
	})

	d := NewDispatcher(s, exec, fastConfig(1))
	d.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Executor never started")
	}

	stopDispatcher(t, d)

	got, err := s.Get(context.Background(), created[0].ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != tasks.StatusCompleted {
		t.Errorf("Expected in-flight task to finish before Stop returned, got %s", got.Status)
	}
	if d.Running() {
		t.Error("Expected Running to be false after Stop")
	}
}

func TestStopDoesNotCancelInFlightExecutor(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	created := seedPending(t, s, 1)

	// The executor honors ctx, the way SimExecutor and any real
	// executor would. Stop must not cancel it mid-task.
	started := make(chan struct{})
	exec := ExecutorFunc(func(ctx context.Context, task *tasks.Task) (Result, error) {
		close(started)
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return Result{Payload: "ok"}, nil
		}
	})

	d := NewDispatcher(s, exec, fastConfig(1))
	d.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Executor never started")
	}

	stopDispatcher(t, d)

	got, err := s.Get(context.Background(), created[0].ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != tasks.StatusCompleted {
		t.Fatalf("Expected completed after Stop, got %s (error %q)", got.Status, got.ErrorMessage)
	}
	if got.Result != "ok" {
		t.Errorf("Expected result 'ok', got %q", got.Result)
	}
	if got.ErrorMessage != "" {
		t.Errorf("Expected no error message, got %q", got.ErrorMessage)
	}
}

func TestDispatcherEmitsLifecycleEvents(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	created := seedPending(t, s, 1)

	stream := events.NewMemoryStream()
	defer stream.Close()
	sub, err := stream.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	exec := ExecutorFunc(func(ctx context.Context, task *tasks.Task) (Result, error) {
		return Result{Payload: "ok"}, nil
	})

	d := NewDispatcher(s, exec, fastConfig(1), WithEmitter(stream))
	d.Start()

	want := map[events.Type]bool{
		events.TypeDispatcherStarted: false,
		events.TypeTaskClaimed:       false,
		events.TypeTaskCompleted:     false,
	}
	deadline := time.After(2 * time.Second)
	for {
		remaining := false
		for _, seen := range want {
			if !seen {
				remaining = true
			}
		}
		if !remaining {
			break
		}
		select {
		case e := <-sub.Events():
			if _, tracked := want[e.Type]; tracked {
				want[e.Type] = true
			}
			if e.Type == events.TypeTaskClaimed && e.TaskID != created[0].ID {
				t.Errorf("Claimed event for unexpected task %s", e.TaskID)
			}
		case <-deadline:
			t.Fatalf("Timed out; events seen so far: %+v", want)
		}
	}

	stopDispatcher(t, d)

	waitFor(t, time.Second, func() bool {
		for {
			select {
			case e := <-sub.Events():
				if e.Type == events.TypeDispatcherStopped {
					return true
				}
			default:
				return false
			}
		}
	}, "dispatcher stopped event")
}
