package movement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// stopTimeout bounds the stop setpoint sent after an interrupted move.
const stopTimeout = time.Second

// Velocity is a body-frame velocity request. Up is positive upwards and Yaw
// is in degrees per second, positive clockwise.
type Velocity struct {
	Forward float32 `json:"forward"`
	Right   float32 `json:"right"`
	Up      float32 `json:"up"`
	Yaw     float32 `json:"yaw"`
}

// Stop is the zero velocity.
var Stop = Velocity{}

// Body converts v into the vehicle's body frame, where down is positive.
func (v Velocity) Body() core.VelocityBodyYawspeed {
	return core.VelocityBodyYawspeed{
		ForwardMS:    v.Forward,
		RightMS:      v.Right,
		DownMS:       -v.Up,
		YawspeedDegS: v.Yaw,
	}
}

// Mover issues offboard setpoints. Every request is ignored with a warning
// while the vehicle is not in offboard mode.
type Mover struct {
	vehicle core.Vehicle
	clock   clock.Clock
	logger  log.Logger
}

// NewMover returns a Mover for vehicle. clk times MoveBodyVelocity.
func NewMover(vehicle core.Vehicle, clk clock.Clock) *Mover {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Mover{
		vehicle: vehicle,
		clock:   clk,
		logger:  log.WithName("movement"),
	}
}

// SetVelocity sends a body-frame velocity setpoint. SetVelocity(ctx, Stop)
// stops the vehicle.
func (m *Mover) SetVelocity(ctx context.Context, v Velocity) error {
	ok, err := m.offboard(ctx)
	if err != nil || !ok {
		return err
	}

	if err := m.vehicle.SetVelocityBody(ctx, v.Body()); err != nil {
		return fmt.Errorf("set velocity: %w", err)
	}
	return nil
}

// MoveBodyVelocity holds v for d and then stops. A cancelled move still
// sends the stop setpoint.
func (m *Mover) MoveBodyVelocity(ctx context.Context, v Velocity, d time.Duration) error {
	if err := m.SetVelocity(ctx, v); err != nil {
		return err
	}

	select {
	case <-m.clock.After(d):
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		return errors.Join(ctx.Err(), m.SetVelocity(stopCtx, Stop))
	}

	return m.SetVelocity(ctx, Stop)
}

// SetPositionNedYaw sends a local-frame position and heading setpoint.
func (m *Mover) SetPositionNedYaw(ctx context.Context, p core.PositionNedYaw) error {
	ok, err := m.offboard(ctx)
	if err != nil || !ok {
		return err
	}

	if err := m.vehicle.SetPositionNed(ctx, p); err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	return nil
}

// PositionNedYaw reads the current local position and heading in the form
// SetPositionNedYaw accepts.
func (m *Mover) PositionNedYaw(ctx context.Context) (core.PositionNedYaw, error) {
	pv, err := telemetry.First(ctx, m.vehicle.PositionVelocityNed())
	if err != nil {
		return core.PositionNedYaw{}, fmt.Errorf("read local position: %w", err)
	}
	h, err := telemetry.First(ctx, m.vehicle.Heading())
	if err != nil {
		return core.PositionNedYaw{}, fmt.Errorf("read heading: %w", err)
	}
	return core.PositionNedYaw{
		NorthM: pv.Position.NorthM,
		EastM:  pv.Position.EastM,
		DownM:  pv.Position.DownM,
		YawDeg: float32(h.HeadingDeg),
	}, nil
}

func (m *Mover) offboard(ctx context.Context) (bool, error) {
	active, err := m.vehicle.IsOffboardActive(ctx)
	if err != nil {
		return false, fmt.Errorf("read offboard state: %w", err)
	}
	if !active {
		m.logger.Warn("System is not in offboard mode, it cannot move")
	}
	return active, nil
}
