// Package supervisor runs the pipeline workers as supervised tasks and
// restarts them with backoff when they die.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"scf-pipeline/internal/observability"
)

// Backoff bounds for task restarts.
const (
	BaseRestartDelay = 2 * time.Second
	MaxRestartDelay  = 60 * time.Second
)

// Task is one supervised worker loop. Run should only return when its
// context is canceled or it hit an unrecoverable error.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor keeps a set of tasks alive until shutdown.
type Supervisor struct {
	tasks   []Task
	metrics *observability.Metrics
	logger  *log.Logger
}

// New creates a supervisor over the given tasks.
func New(tasks []Task, metrics *observability.Metrics, logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = log.New(log.Writer(), "[supervisor] ", log.LstdFlags)
	}
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Supervisor{tasks: tasks, metrics: metrics, logger: logger}
}

// Run starts every task and blocks until the context is canceled and all
// tasks have returned.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, task := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.supervise(ctx, t)
		}(task)
	}
	wg.Wait()
	return ctx.Err()
}

// supervise runs one task in a restart loop with exponential backoff.
func (s *Supervisor) supervise(ctx context.Context, t Task) {
	exits := 0
	for {
		s.logger.Printf("starting %s", t.Name)
		err := s.runOnce(ctx, t)

		if ctx.Err() != nil {
			s.logger.Printf("%s stopped", t.Name)
			return
		}

		exits++
		delay := RestartDelay(exits)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Printf("%s exited: %v, restarting in %s", t.Name, err, delay)
		} else {
			s.logger.Printf("%s exited, restarting in %s", t.Name, delay)
		}
		s.metrics.TaskRestarts.WithLabelValues(t.Name).Inc()

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runOnce isolates one task run, converting a panic into an error return so
// one crashing worker cannot take the process down.
func (s *Supervisor) runOnce(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("%s panicked: %v", t.Name, r)
			err = errorFromPanic(r)
		}
	}()
	return t.Run(ctx)
}

// RestartDelay computes the backoff before restart number n (1-based):
// max(2s, 2s * 2^(n-1)), capped at 60s.
func RestartDelay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	delay := BaseRestartDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= MaxRestartDelay {
			return MaxRestartDelay
		}
	}
	if delay < BaseRestartDelay {
		return BaseRestartDelay
	}
	return delay
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return fmt.Sprintf("task panic: %v", p.v) }

func errorFromPanic(v interface{}) error {
	if err, ok := v.(error); ok {
		return err
	}
	return panicError{v: v}
}
