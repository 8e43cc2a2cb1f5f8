package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/flight"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
	"github.com/autopeer-io/dronecontrol/internal/pkg/metrics"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

type recorder struct {
	mu    sync.Mutex
	names []string
	hook  func(ctx context.Context, cmd command.Command) error
}

func (r *recorder) Execute(ctx context.Context, cmd command.Command) error {
	r.mu.Lock()
	r.names = append(r.names, cmd.Name())
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		return hook(ctx, cmd)
	}
	return nil
}

func (r *recorder) executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func testOptions(timeout time.Duration) *options.SchedulerOptions {
	return &options.SchedulerOptions{CommandTimeout: timeout, IdlePoll: 10 * time.Millisecond}
}

func start(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("scheduler did not stop")
		}
	})
}

func TestQueueEnqueue(t *testing.T) {
	q := NewQueue()
	id := q.Enqueue(command.Land{}, false)
	assert.NotEqual(t, "", id.String())
	q.Enqueue(command.Hold{}, false)
	require.Equal(t, 2, q.Len())

	pending := q.Pending()
	assert.Equal(t, command.NameLand, pending[0].Name())
	assert.Equal(t, id, pending[0].ID)

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, command.NameLand, item.Name())
	assert.Equal(t, 1, q.Len())
}

func TestQueueInterruptDiscardsPending(t *testing.T) {
	q := NewQueue()
	q.Enqueue(command.Land{}, false)
	q.Enqueue(command.Hold{}, false)

	before := testutil.ToFloat64(metrics.CommandsDiscarded)
	q.Enqueue(command.ReturnHome{}, true)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, command.NameReturnHome, pending[0].Name())
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.CommandsDiscarded))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.QueueDepth))
}

func TestQueueNilCommand(t *testing.T) {
	q := NewQueue()
	q.Enqueue(command.Land{}, false)

	q.Enqueue(nil, false)
	assert.Equal(t, 1, q.Len())

	q.Enqueue(nil, true)
	assert.Equal(t, 0, q.Len())

	assert.Equal(t, 0, q.Clear())
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestRunInOrder(t *testing.T) {
	rec := &recorder{}
	s := New(NewQueue(), rec, testOptions(time.Second))
	s.Queue().Enqueue(command.Takeoff{}, false)
	s.Queue().Enqueue(command.StartOffboard{}, false)
	s.Queue().Enqueue(command.Land{}, false)
	start(t, s)

	require.Eventually(t, func() bool { return len(rec.executed()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{command.NameTakeoff, command.NameStartOffboard, command.NameLand}, rec.executed())
}

func TestRunInterrupt(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{hook: func(ctx context.Context, cmd command.Command) error {
		if cmd.Name() == command.NameTakeoff {
			close(started)
			<-release
		}
		return nil
	}}
	s := New(NewQueue(), rec, testOptions(time.Second))
	s.Queue().Enqueue(command.Takeoff{}, false)
	start(t, s)

	<-started
	assert.Equal(t, command.NameTakeoff, s.CurrentName())
	s.Queue().Enqueue(command.StartOffboard{}, false)
	s.Queue().Enqueue(command.Hold{}, false)
	s.Queue().Enqueue(command.ReturnHome{}, true)
	close(release)

	require.Eventually(t, func() bool { return len(rec.executed()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{command.NameTakeoff, command.NameReturnHome}, rec.executed())
}

func TestRunTimeout(t *testing.T) {
	rec := &recorder{hook: func(ctx context.Context, cmd command.Command) error {
		if cmd.Name() == command.NameHold {
			select {} // never resolves, ignores ctx
		}
		return nil
	}}
	s := New(NewQueue(), rec, testOptions(50*time.Millisecond), WithAbandonGrace(10*time.Millisecond))
	timeouts := metrics.CommandsTotal.WithLabelValues(command.NameHold, "timeout")
	before := testutil.ToFloat64(timeouts)

	s.Queue().Enqueue(command.Hold{}, false)
	s.Queue().Enqueue(command.Land{}, false)
	start(t, s)

	require.Eventually(t, func() bool { return len(rec.executed()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{command.NameHold, command.NameLand}, rec.executed())
	assert.Equal(t, before+1, testutil.ToFloat64(timeouts))
	assert.Equal(t, 1, s.Abandoned())
}

func TestRunTracksAbandonedCommand(t *testing.T) {
	release := make(chan struct{})
	rec := &recorder{hook: func(ctx context.Context, cmd command.Command) error {
		if cmd.Name() == command.NameHold {
			<-release // ignores ctx until released
		}
		return nil
	}}
	s := New(NewQueue(), rec, testOptions(20*time.Millisecond), WithAbandonGrace(10*time.Millisecond))
	gauge := testutil.ToFloat64(metrics.CommandsAbandoned)

	s.Queue().Enqueue(command.Hold{}, false)
	s.Queue().Enqueue(command.Land{}, false)
	start(t, s)

	require.Eventually(t, func() bool { return len(rec.executed()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Abandoned())
	assert.Equal(t, gauge+1, testutil.ToFloat64(metrics.CommandsAbandoned))

	close(release)
	require.Eventually(t, func() bool { return s.Abandoned() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, gauge, testutil.ToFloat64(metrics.CommandsAbandoned))
}

func TestRunCancelsTimedOutCommand(t *testing.T) {
	cancelled := make(chan error, 1)
	rec := &recorder{hook: func(ctx context.Context, cmd command.Command) error {
		<-ctx.Done()
		cancelled <- ctx.Err()
		return ctx.Err()
	}}
	s := New(NewQueue(), rec, testOptions(20*time.Millisecond))
	s.Queue().Enqueue(command.Hold{}, false)
	start(t, s)

	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("command was not cancelled")
	}
}

func TestRunSurvivesFailures(t *testing.T) {
	rec := &recorder{hook: func(ctx context.Context, cmd command.Command) error {
		switch cmd.Name() {
		case command.NameTakeoff:
			panic("boom")
		case command.NameHold:
			return errors.New("rejected")
		}
		return nil
	}}
	s := New(NewQueue(), rec, testOptions(time.Second))
	panics := metrics.CommandsTotal.WithLabelValues(command.NameTakeoff, "panic")
	before := testutil.ToFloat64(panics)

	s.Queue().Enqueue(command.Takeoff{}, false)
	s.Queue().Enqueue(command.Hold{}, false)
	s.Queue().Enqueue(command.Land{}, false)
	start(t, s)

	require.Eventually(t, func() bool { return len(rec.executed()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(panics))
}

func TestSetTimeout(t *testing.T) {
	s := New(NewQueue(), &recorder{}, testOptions(time.Second))
	s.SetTimeout(3 * time.Second)
	assert.Equal(t, 3*time.Second, s.Timeout())

	s.SetTimeout(0)
	assert.Equal(t, 3*time.Second, s.Timeout())

	_, ok := s.Current()
	assert.False(t, ok)
	assert.Empty(t, s.CurrentName())
}

type ready struct{}

func (ready) IsReady() bool { return true }

func TestTakeoffOffboardMoveRight(t *testing.T) {
	v := sim.New()
	defer v.Close()
	exec := command.NewDispatcher(ready{}, flight.NewController(v, time.Second), movement.NewMover(v, nil))
	s := New(NewQueue(), exec, testOptions(5*time.Second))

	right, err := command.Nudge(movement.Right)
	require.NoError(t, err)
	s.Queue().Enqueue(command.Takeoff{CheckState: true}, false)
	s.Queue().Enqueue(command.StartOffboard{}, false)
	s.Queue().Enqueue(right, false)
	start(t, s)

	want := []string{
		sim.ActionArm, sim.ActionTakeoff,
		sim.ActionSetVelocity, sim.ActionStartOffboard,
		sim.ActionSetVelocity, sim.ActionSetVelocity,
	}
	require.Eventually(t, func() bool { return len(v.Calls()) == len(want) }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, v.Calls())

	setpoints := v.Setpoints()
	require.Len(t, setpoints, 3)
	assert.Equal(t, float32(1), setpoints[1].Velocity.RightMS)
	assert.Equal(t, float32(0), setpoints[2].Velocity.RightMS)
	assert.GreaterOrEqual(t, setpoints[2].At.Sub(setpoints[1].At), 900*time.Millisecond)
}
