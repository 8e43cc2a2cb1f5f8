package flight

import (
	"context"
	"fmt"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
)

// Flight phases. They are derived from telemetry on every read, never stored.
const (
	PhaseOnGround = "on_ground"
	PhaseAirborne = "airborne"
	PhaseOffboard = "offboard"
	PhaseLanding  = "landing"
)

// State is a live snapshot of the vehicle's flight state.
type State struct {
	LandedState    core.LandedState `json:"landedState"`
	Armed          bool             `json:"armed"`
	OffboardActive bool             `json:"offboardActive"`
	FlightMode     core.FlightMode  `json:"flightMode"`
}

// Phase maps the snapshot onto the phase machine. A vehicle taking off, or
// one whose landed state is unknown, counts as airborne.
func (s State) Phase() string {
	switch s.LandedState {
	case core.LandedStateOnGround:
		return PhaseOnGround
	case core.LandedStateLanding:
		return PhaseLanding
	}
	if s.OffboardActive {
		return PhaseOffboard
	}
	return PhaseAirborne
}

// Snapshot reads the current flight state from telemetry.
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	landed, err := telemetry.First(ctx, c.vehicle.LandedState())
	if err != nil {
		return State{}, fmt.Errorf("read landed state: %w", err)
	}
	armed, err := telemetry.First(ctx, c.vehicle.Armed())
	if err != nil {
		return State{}, fmt.Errorf("read armed state: %w", err)
	}
	mode, err := telemetry.First(ctx, c.vehicle.FlightMode())
	if err != nil {
		return State{}, fmt.Errorf("read flight mode: %w", err)
	}
	offboard, err := c.vehicle.IsOffboardActive(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read offboard state: %w", err)
	}

	return State{
		LandedState:    landed,
		Armed:          armed,
		OffboardActive: offboard,
		FlightMode:     mode,
	}, nil
}
