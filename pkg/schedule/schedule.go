// Package schedule owns named, cancellable timers: one-shot tasks (also used
// for debouncing, since re-scheduling a name replaces the pending task) and
// fixed-period tasks. Stop cancels everything and waits for callbacks that
// are already running, so nothing fires after teardown.
package schedule

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned when scheduling on a stopped scheduler.
var ErrStopped = errors.New("schedule: scheduler stopped")

type task struct {
	cancel func()
}

// Scheduler runs named tasks.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	wg      sync.WaitGroup
	stopped bool
	logger  *zap.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:  make(map[string]*task),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// After runs fn once after d. A pending task with the same name is
// cancelled first, which makes repeated calls a debounce.
func (s *Scheduler) After(name string, d time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.cancelLocked(name)

	t := &task{}
	s.wg.Add(1)
	timer := time.AfterFunc(d, func() {
		defer s.wg.Done()
		s.mu.Lock()
		if s.tasks[name] != t {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, name)
		s.mu.Unlock()
		s.run(name, fn)
	})
	t.cancel = func() {
		if timer.Stop() {
			s.wg.Done()
		}
	}
	s.tasks[name] = t
	return nil
}

// Every runs fn every d until the task is cancelled or the scheduler stops.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) error {
	if d <= 0 {
		return errors.New("schedule: period must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.cancelLocked(name)

	done := make(chan struct{})
	var once sync.Once
	t := &task{cancel: func() { once.Do(func() { close(done) }) }}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.run(name, fn)
			}
		}
	}()
	s.tasks[name] = t
	return nil
}

// Cancel removes a pending task. It reports whether one existed.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(name)
}

// Pending reports whether a task named name is scheduled.
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// Stop cancels every task and waits for running callbacks to return. It must
// not be called from inside a task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for name := range s.tasks {
		s.cancelLocked(name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) cancelLocked(name string) bool {
	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	delete(s.tasks, name)
	t.cancel()
	return true
}

func (s *Scheduler) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("schedule: task panicked", zap.String("task", name), zap.Any("panic", r))
		}
	}()
	fn()
}
