package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/taskflow-go/taskflow/tasks"
)

// DefaultFailureRate is the fraction of simulated runs that fail.
const DefaultFailureRate = 0.05

// simDurations maps a priority to its simulated processing time.
var simDurations = map[tasks.Priority]time.Duration{
	tasks.PriorityLow:    2 * time.Second,
	tasks.PriorityMedium: 3 * time.Second,
	tasks.PriorityHigh:   1 * time.Second,
	tasks.PriorityUrgent: 500 * time.Millisecond,
}

// SimExecutor fakes work: it sleeps for a priority-dependent duration
// and fails a configurable fraction of runs. It is the default
// executor for the daemon and for demos; real deployments plug in
// their own Executor.
type SimExecutor struct {
	// FailureRate is the probability in [0, 1] that a run fails with a
	// simulated error. Negative values mean DefaultFailureRate; zero
	// means never fail.
	FailureRate float64

	// TimeScale multiplies the simulated durations. Values below 1
	// speed the simulation up; zero means full speed.
	TimeScale float64

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimExecutor returns a simulator with the default failure rate.
func NewSimExecutor() *SimExecutor {
	return &SimExecutor{
		FailureRate: DefaultFailureRate,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute sleeps for the priority's duration, then reports success or
// a simulated failure. The sleep is cut short when ctx ends.
func (s *SimExecutor) Execute(ctx context.Context, t *tasks.Task) (Result, error) {
	d, ok := simDurations[t.Priority]
	if !ok {
		d = simDurations[tasks.PriorityLow]
	}
	if s.TimeScale > 0 {
		d = time.Duration(float64(d) * s.TimeScale)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-timer.C:
	}

	if s.roll() < s.failureRate() {
		return Result{}, fmt.Errorf("simulated processing error")
	}
	return Result{Payload: fmt.Sprintf("Task %s completed successfully", t.ID)}, nil
}

func (s *SimExecutor) failureRate() float64 {
	if s.FailureRate < 0 {
		return DefaultFailureRate
	}
	return s.FailureRate
}

func (s *SimExecutor) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s.rand.Float64()
}
