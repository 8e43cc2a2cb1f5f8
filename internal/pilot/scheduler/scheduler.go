// Package scheduler runs queued commands one at a time, each bounded by a
// fixed timeout.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pkg/metrics"
	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

// Executor runs a single command.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd command.Command) error

func (f ExecutorFunc) Execute(ctx context.Context, cmd command.Command) error {
	return f(ctx, cmd)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for idle waits.
func WithClock(clk clock.Clock) Option {
	return func(s *Scheduler) { s.clock = clk }
}

// WithAbandonGrace sets how long the loop waits for a timed-out command to
// return after its context is cancelled, before moving on without it.
func WithAbandonGrace(d time.Duration) Option {
	return func(s *Scheduler) { s.grace = d }
}

// Scheduler is the single consumer of a Queue.
type Scheduler struct {
	queue    *Queue
	exec     Executor
	clock    clock.Clock
	idlePoll time.Duration
	grace    time.Duration
	timeout  atomic.Int64
	current  atomic.Pointer[Item]
	logger   log.Logger

	// abandoned counts timed-out commands whose goroutine has not returned.
	abandoned atomic.Int64
}

// Execution states of a command goroutine.
const (
	running int32 = iota
	finished
	abandoned
)

// New returns a scheduler that pops from queue and runs commands on exec.
func New(queue *Queue, exec Executor, opts *options.SchedulerOptions, o ...Option) *Scheduler {
	s := &Scheduler{
		queue:    queue,
		exec:     exec,
		clock:    clock.RealClock{},
		idlePoll: opts.IdlePoll,
		grace:    time.Second,
		logger:   log.WithName("scheduler"),
	}
	s.timeout.Store(int64(opts.CommandTimeout))
	for _, fn := range o {
		fn(s)
	}
	return s
}

// Queue returns the queue the scheduler consumes.
func (s *Scheduler) Queue() *Queue {
	return s.queue
}

// Timeout returns the per-command timeout.
func (s *Scheduler) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// SetTimeout changes the per-command timeout for commands started afterwards.
func (s *Scheduler) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	if old := time.Duration(s.timeout.Swap(int64(d))); old != d {
		s.logger.Info("Command timeout changed", "old", old, "new", d)
	}
}

// Current returns the command being executed, if any.
func (s *Scheduler) Current() (Item, bool) {
	if item := s.current.Load(); item != nil {
		return *item, true
	}
	return Item{}, false
}

// CurrentName returns the name of the command being executed, or "".
func (s *Scheduler) CurrentName() string {
	if item, ok := s.Current(); ok {
		return item.Name()
	}
	return ""
}

// Abandoned returns how many timed-out commands are still running after
// the loop moved on without them.
func (s *Scheduler) Abandoned() int {
	return int(s.abandoned.Load())
}

// Run executes queued commands until ctx is cancelled. It always returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", "timeout", s.Timeout(), "idlePoll", s.idlePoll)
	for {
		if ctx.Err() != nil {
			s.logger.Warn("System stop")
			return nil
		}

		item, ok := s.queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
			case <-s.queue.Ready():
			case <-s.clock.After(s.idlePoll):
			}
			continue
		}

		s.execute(ctx, item)
	}
}

func (s *Scheduler) execute(ctx context.Context, item Item) {
	s.current.Store(&item)
	defer s.current.Store(nil)

	name := item.Name()
	timeout := s.Timeout()
	logger := s.logger.WithValues("command", name, "id", item.ID)
	logger.Info("Execute action", "waited", time.Since(item.Enqueued))

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmdCtx = log.IntoContext(cmdCtx, logger)

	start := s.clock.Now()
	done := make(chan error, 1)
	var state atomic.Int32
	go func() {
		defer func() {
			if !state.CompareAndSwap(running, finished) {
				s.abandoned.Add(-1)
				metrics.CommandsAbandoned.Dec()
				logger.Warn("Abandoned action returned", "after", s.clock.Since(start))
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				done <- &panicError{value: r, stack: debug.Stack()}
			}
		}()
		done <- s.exec.Execute(cmdCtx, item.Command)
	}()

	var (
		err error
		pe  *panicError
	)
	select {
	case err = <-done:
	case <-cmdCtx.Done():
		cancel()
		select {
		case err = <-done:
		case <-s.clock.After(s.grace):
			err = s.abandon(&state, done, logger)
			if err == nil {
				err = cmdCtx.Err()
			}
		}
		if ctx.Err() == nil && errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s after %s: %w", name, timeout, core.ErrCommandTimeout)
		}
	}

	metrics.CommandLatency.WithLabelValues(name).Observe(s.clock.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.CommandsTotal.WithLabelValues(name, "ok").Inc()
		logger.Debug("Action finished")
	case errors.As(err, &pe):
		metrics.CommandsTotal.WithLabelValues(name, "panic").Inc()
		logger.Error(err, "Action panicked", "stack", string(pe.stack))
	case errors.Is(err, core.ErrCommandTimeout):
		metrics.CommandsTotal.WithLabelValues(name, "timeout").Inc()
		logger.Warn("Time out waiting for action", "timeout", timeout)
	case ctx.Err() != nil:
		metrics.CommandsTotal.WithLabelValues(name, "cancelled").Inc()
		logger.Warn("Action interrupted by shutdown", "error", err)
	default:
		metrics.CommandsTotal.WithLabelValues(name, "failed").Inc()
		logger.Error(err, "Action failed")
	}
}

// abandon gives up on a command that ignored its cancelled context. The
// next command may then start while this one is still running; Abandoned
// reports such stragglers until they return. If the command finished in the
// meantime its result is returned instead.
func (s *Scheduler) abandon(state *atomic.Int32, done <-chan error, logger log.Logger) error {
	s.abandoned.Add(1)
	metrics.CommandsAbandoned.Inc()
	if !state.CompareAndSwap(running, abandoned) {
		s.abandoned.Add(-1)
		metrics.CommandsAbandoned.Dec()
		return <-done
	}
	logger.Warn("Action ignores cancellation, moving on without it", "grace", s.grace)
	return nil
}

// PendingNames lists the names of the queued commands in execution order.
func (s *Scheduler) PendingNames() []string {
	items := s.queue.Pending()
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name()
	}
	return names
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
