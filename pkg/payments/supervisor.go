package payments

import (
	"log/slog"
	"sync"
)

// Supervisor runs detached background tasks whose failures are logged,
// never raised back to an already-completed request.
type Supervisor struct {
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewSupervisor(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{logger: logger}
}

// Go runs fn on its own goroutine. The returned error goes to the log
// under the task name.
func (s *Supervisor) Go(name string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			s.logger.Error("background task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until all running tasks finish. Used on shutdown and in
// tests.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
