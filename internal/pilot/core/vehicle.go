package core

import (
	"context"

	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
)

// Telemetry is the set of streams a vehicle exposes.
type Telemetry interface {
	ConnectionState() telemetry.Stream[ConnectionState]
	Health() telemetry.Stream[Health]
	LandedState() telemetry.Stream[LandedState]
	Armed() telemetry.Stream[bool]
	FlightMode() telemetry.Stream[FlightMode]
	Position() telemetry.Stream[Position]
	PositionVelocityNed() telemetry.Stream[PositionVelocityNed]
	Attitude() telemetry.Stream[EulerAngle]
	VelocityNed() telemetry.Stream[VelocityNed]
	Heading() telemetry.Stream[Heading]
}

// Action issues one-shot requests. Each call returns once the vehicle
// acknowledged the request, not once the maneuver is complete.
type Action interface {
	Arm(ctx context.Context) error
	Takeoff(ctx context.Context) error
	Land(ctx context.Context) error
	ReturnToLaunch(ctx context.Context) error
	Hold(ctx context.Context) error
	// Kill stops the motors immediately, in the air too.
	Kill(ctx context.Context) error
}

// Offboard drives the vehicle with externally computed setpoints.
type Offboard interface {
	SetVelocityBody(ctx context.Context, v VelocityBodyYawspeed) error
	SetPositionNed(ctx context.Context, p PositionNedYaw) error
	// StartOffboard needs a setpoint sent beforehand.
	StartOffboard(ctx context.Context) error
	StopOffboard(ctx context.Context) error
	IsOffboardActive(ctx context.Context) (bool, error)
}

// Vehicle is the live session with one autopilot.
type Vehicle interface {
	Telemetry
	Action
	Offboard

	// Connect opens the transport named by address. It does not wait for the link.
	Connect(ctx context.Context, address string) error

	// Close releases the transport. Later calls fail with ErrSessionClosed.
	Close() error
}
