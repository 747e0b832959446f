// Package supervisor runs the service's background loops and coordinates
// their shutdown.
package supervisor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a named long-running loop. Run must return when ctx is canceled.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// Supervisor starts tasks and waits for them to drain on shutdown.
type Supervisor struct {
	tasks        []Task
	drainTimeout time.Duration
	logger       *zap.Logger
}

// New builds a Supervisor. drainTimeout bounds how long shutdown waits for
// loops to finish their current cycle.
func New(drainTimeout time.Duration, logger *zap.Logger) *Supervisor {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{drainTimeout: drainTimeout, logger: logger}
}

// Add registers a task to run.
func (s *Supervisor) Add(name string, run func(ctx context.Context)) {
	s.tasks = append(s.tasks, Task{Name: name, Run: run})
}

// Run starts every task and blocks until ctx is canceled, then waits up to
// the drain timeout for the tasks to stop.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, task := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.logger.Info("task started", zap.String("task", t.Name))
			t.Run(ctx)
			s.logger.Info("task stopped", zap.String("task", t.Name))
		}(task)
	}

	<-ctx.Done()
	s.logger.Info("shutdown requested, draining tasks")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("all tasks drained")
	case <-time.After(s.drainTimeout):
		s.logger.Warn("drain timeout exceeded, exiting with tasks still running")
	}
}
