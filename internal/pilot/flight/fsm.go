package flight

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/dronecontrol/internal/pkg/util/fsm"
)

const (
	EventTakeoff       = "takeoff"
	EventLand          = "land"
	EventReturnHome    = "return_home"
	EventHold          = "hold"
	EventStartOffboard = "start_offboard"
	EventStopOffboard  = "stop_offboard"
)

var (
	errNotOnGround = errors.New("not on ground")
	errOnGround    = errors.New("vehicle is on the ground")
)

var allPhases = []string{PhaseOnGround, PhaseAirborne, PhaseOffboard, PhaseLanding}

// machine is built for a single operation, starting from the phase the
// vehicle reports at that moment.
type machine struct {
	*fsm.FSM
	c *Controller
}

func (c *Controller) newMachine(phase string) *machine {
	m := &machine{c: c}

	events := fsm.Events{
		{Name: EventTakeoff, Src: allPhases, Dst: PhaseAirborne},
		{Name: EventLand, Src: allPhases, Dst: PhaseLanding},
		{Name: EventReturnHome, Src: allPhases, Dst: PhaseLanding},
		{Name: EventStartOffboard, Src: allPhases, Dst: PhaseOffboard},

		// Hold and stop leave a grounded vehicle where it is.
		{Name: EventHold, Src: []string{PhaseAirborne, PhaseOffboard, PhaseLanding}, Dst: PhaseAirborne},
		{Name: EventHold, Src: []string{PhaseOnGround}, Dst: PhaseOnGround},
		{Name: EventStopOffboard, Src: []string{PhaseAirborne, PhaseOffboard, PhaseLanding}, Dst: PhaseAirborne},
		{Name: EventStopOffboard, Src: []string{PhaseOnGround}, Dst: PhaseOnGround},
	}

	callbacks := fsm.Callbacks{
		// Guards (before_...): refuse a transition
		"before_" + EventTakeoff:       fsmutil.Guard(m.GuardTakeoff),
		"before_" + EventStartOffboard: fsmutil.Guard(m.GuardStartOffboard),

		// Side-Effects (after_...): talk to the vehicle
		"after_" + EventTakeoff:       fsmutil.WrapEvent(m.ActionTakeoff),
		"after_" + EventLand:          fsmutil.WrapEvent(m.ActionLand),
		"after_" + EventReturnHome:    fsmutil.WrapEvent(m.ActionReturnHome),
		"after_" + EventHold:          fsmutil.WrapEvent(m.ActionHold),
		"after_" + EventStartOffboard: fsmutil.WrapEvent(m.ActionStartOffboard),
		"after_" + EventStopOffboard:  fsmutil.WrapEvent(m.ActionStopOffboard),
	}

	m.FSM = fsm.NewFSM(phase, events, callbacks)
	return m
}

// fire runs event and folds the library's bookkeeping errors back into the
// operation's own outcome. A refused transition is not an error.
func (m *machine) fire(ctx context.Context, event string, args ...any) error {
	err := m.Event(ctx, event, args...)

	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &noTransition):
		return noTransition.Err
	case errors.As(err, &canceled):
		m.c.logger.Warn("Flight command refused", "event", event, "phase", m.Current(), "reason", canceled.Err)
		return nil
	default:
		return err
	}
}

// GuardTakeoff refuses a checked takeoff unless the vehicle is on the ground.
// Args: [checkState bool]
func (m *machine) GuardTakeoff(ctx context.Context, e *fsm.Event) error {
	checkState := true
	if len(e.Args) > 0 {
		if v, ok := e.Args[0].(bool); ok {
			checkState = v
		}
	}
	if checkState && e.Src != PhaseOnGround {
		return errNotOnGround
	}
	return nil
}

// GuardStartOffboard refuses offboard control on the ground.
func (m *machine) GuardStartOffboard(ctx context.Context, e *fsm.Event) error {
	if e.Src == PhaseOnGround {
		return errOnGround
	}
	return nil
}

func (m *machine) ActionTakeoff(ctx context.Context, e *fsm.Event) error {
	return m.c.takeoff(ctx)
}

func (m *machine) ActionLand(ctx context.Context, e *fsm.Event) error {
	return m.c.land(ctx)
}

func (m *machine) ActionReturnHome(ctx context.Context, e *fsm.Event) error {
	return m.c.returnHome(ctx)
}

func (m *machine) ActionHold(ctx context.Context, e *fsm.Event) error {
	return m.c.hold(ctx)
}

func (m *machine) ActionStartOffboard(ctx context.Context, e *fsm.Event) error {
	return m.c.startOffboard(ctx)
}

func (m *machine) ActionStopOffboard(ctx context.Context, e *fsm.Event) error {
	return m.c.stopOffboard(ctx)
}
