package command

import (
	"context"
	"fmt"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/flight"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
)

// Session reports whether the vehicle session is ready for commands.
type Session interface {
	IsReady() bool
}

// Dispatcher interprets commands against the flight controller and mover.
type Dispatcher struct {
	session Session
	flight  *flight.Controller
	mover   *movement.Mover
}

// NewDispatcher returns a Dispatcher. A nil session is always ready.
func NewDispatcher(session Session, fc *flight.Controller, mover *movement.Mover) *Dispatcher {
	return &Dispatcher{session: session, flight: fc, mover: mover}
}

// Execute runs cmd to completion or until ctx ends.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) error {
	if d.session != nil && !d.session.IsReady() {
		return fmt.Errorf("%s: %w", cmd.Name(), core.ErrNotConnected)
	}

	switch c := cmd.(type) {
	case Takeoff:
		return d.flight.Takeoff(ctx, c.CheckState)
	case Land:
		return d.flight.Land(ctx)
	case ReturnHome:
		return d.flight.ReturnHome(ctx)
	case Hold:
		return d.flight.Hold(ctx)
	case Kill:
		return d.flight.Kill(ctx)
	case StartOffboard:
		return d.flight.StartOffboard(ctx)
	case StopOffboard:
		return d.flight.StopOffboard(ctx)
	case ToggleOffboard:
		return d.flight.ToggleOffboard(ctx)
	case ToggleTakeoffLand:
		return d.flight.ToggleTakeoffLand(ctx)
	case SetVelocity:
		return d.mover.SetVelocity(ctx, c.Velocity)
	case MoveBodyVelocity:
		return d.mover.MoveBodyVelocity(ctx, c.Velocity, c.Duration)
	case SetPositionNedYaw:
		return d.mover.SetPositionNedYaw(ctx, c.Position)
	case Move:
		return d.mover.Move(ctx, c.Direction)
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
}
