package flight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
)

// frozen keeps scripted transitions from ever firing, so tests drive telemetry by hand.
const frozen = time.Hour

func newTestController(t *testing.T, opts ...sim.Option) (*Controller, *sim.Vehicle) {
	t.Helper()
	v := sim.New(opts...)
	t.Cleanup(func() { _ = v.Close() })
	return NewController(v, time.Second), v
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStatePhase(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"on ground", State{LandedState: core.LandedStateOnGround}, PhaseOnGround},
		{"on ground ignores offboard", State{LandedState: core.LandedStateOnGround, OffboardActive: true}, PhaseOnGround},
		{"in air", State{LandedState: core.LandedStateInAir}, PhaseAirborne},
		{"taking off", State{LandedState: core.LandedStateTakingOff}, PhaseAirborne},
		{"unknown", State{LandedState: core.LandedStateUnknown}, PhaseAirborne},
		{"offboard", State{LandedState: core.LandedStateInAir, OffboardActive: true}, PhaseOffboard},
		{"landing", State{LandedState: core.LandedStateLanding, OffboardActive: true}, PhaseLanding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Phase())
		})
	}
}

func TestTakeoffFromGround(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t, sim.WithDelay(5*time.Millisecond))

	require.NoError(t, c.Takeoff(ctx, true))

	assert.Equal(t, []string{sim.ActionArm, sim.ActionTakeoff}, v.Calls())
	phase, err := c.Phase(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseAirborne, phase)
}

func TestTakeoffCheckState(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t, sim.WithInitialState(core.LandedStateInAir, true))

	require.NoError(t, c.Takeoff(ctx, true))
	assert.Empty(t, v.Calls(), "checked takeoff must be a no-op in the air")

	require.NoError(t, c.Takeoff(ctx, false))
	assert.Equal(t, []string{sim.ActionArm, sim.ActionTakeoff}, v.Calls())
}

func TestTakeoffContinuesWhenArmFails(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t,
		sim.WithInitialState(core.LandedStateOnGround, true),
		sim.WithFailure(sim.ActionArm, core.Reject(sim.ActionArm, "TEMPORARILY_REJECTED")),
	)

	require.NoError(t, c.Takeoff(ctx, true))
	assert.Equal(t, []string{sim.ActionArm, sim.ActionTakeoff}, v.Calls())
}

func TestTakeoffRejectedDoesNotRetry(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t, sim.WithFailure(sim.ActionTakeoff, core.Reject(sim.ActionTakeoff, "DENIED")))

	err := c.Takeoff(ctx, true)
	assert.ErrorIs(t, err, core.ErrActionRejected)
	assert.Equal(t, []string{sim.ActionArm, sim.ActionTakeoff}, v.Calls())
}

func TestLandWaitsForGroundAndDisarm(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t, sim.WithDelay(frozen), sim.WithInitialState(core.LandedStateInAir, true))

	done := make(chan error, 1)
	go func() { done <- c.Land(ctx) }()

	assertPending := func(msg string) {
		select {
		case err := <-done:
			t.Fatalf("%s: land returned early: %v", msg, err)
		case <-time.After(30 * time.Millisecond):
		}
	}

	assertPending("landing")

	v.SetLandedState(core.LandedStateOnGround)
	assertPending("on ground but still armed")

	v.SetArmed(false)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("land did not return after disarm")
	}
	assert.Equal(t, []string{sim.ActionLand}, v.Calls())
}

func TestLandingTimeout(t *testing.T) {
	ctx := testContext(t)
	v := sim.New(sim.WithDelay(frozen), sim.WithInitialState(core.LandedStateInAir, true))
	defer v.Close()
	c := NewController(v, 20*time.Millisecond)

	err := c.Land(ctx)
	assert.ErrorIs(t, err, core.ErrLandingTimeout)
}

func TestStartOffboardRefusedOnGround(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t)

	require.NoError(t, c.StartOffboard(ctx))
	assert.Empty(t, v.Calls())
}

func TestStartOffboard(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t, sim.WithInitialState(core.LandedStateInAir, true))

	require.NoError(t, c.StartOffboard(ctx))
	assert.Equal(t, []string{sim.ActionSetVelocity, sim.ActionStartOffboard}, v.Calls())

	setpoints := v.Setpoints()
	require.Len(t, setpoints, 1)
	assert.Equal(t, core.StopVelocity, *setpoints[0].Velocity)

	phase, err := c.Phase(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseOffboard, phase)
}

func TestStartOffboardFailureReturnsHome(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t,
		sim.WithDelay(5*time.Millisecond),
		sim.WithInitialState(core.LandedStateInAir, true),
		sim.WithFailure(sim.ActionStartOffboard, core.Reject(sim.ActionStartOffboard, "COMMAND_DENIED")),
	)

	require.NoError(t, c.StartOffboard(ctx))
	assert.Equal(t, []string{sim.ActionSetVelocity, sim.ActionStartOffboard, sim.ActionReturnToLaunch}, v.Calls())

	s, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.LandedStateOnGround, s.LandedState)
	assert.False(t, s.Armed)
}

func TestHoldFailureReturnsHomeWithoutRetry(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t,
		sim.WithInitialState(core.LandedStateInAir, true),
		sim.WithFailure(sim.ActionHold, core.Reject(sim.ActionHold, "FAILED")),
	)

	require.NoError(t, c.Hold(ctx))
	assert.Equal(t, []string{sim.ActionHold, sim.ActionReturnToLaunch}, v.Calls())
}

func TestReturnHomeFailureIsTerminal(t *testing.T) {
	ctx := testContext(t)
	v := sim.New(
		sim.WithInitialState(core.LandedStateInAir, true),
		sim.WithFailure(sim.ActionReturnToLaunch, core.Reject(sim.ActionReturnToLaunch, "FAILED")),
	)
	defer v.Close()
	c := NewController(v, 20*time.Millisecond)

	err := c.ReturnHome(ctx)
	assert.ErrorIs(t, err, core.ErrActionRejected)
	assert.ErrorIs(t, err, core.ErrLandingTimeout)
	assert.Equal(t, []string{sim.ActionReturnToLaunch}, v.Calls())
}

func TestStopOffboardFailureDoesNotEscalate(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t,
		sim.WithInitialState(core.LandedStateInAir, true),
		sim.WithFailure(sim.ActionStopOffboard, core.Reject(sim.ActionStopOffboard, "FAILED")),
	)

	err := c.StopOffboard(ctx)
	assert.ErrorIs(t, err, core.ErrActionRejected)
	assert.Equal(t, []string{sim.ActionSetVelocity, sim.ActionStopOffboard}, v.Calls())
}

func TestToggleOffboard(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t, sim.WithInitialState(core.LandedStateInAir, true))

	require.NoError(t, c.ToggleOffboard(ctx))
	active, err := v.IsOffboardActive(ctx)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, c.ToggleOffboard(ctx))
	active, err = v.IsOffboardActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestToggleTakeoffLand(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t)

	require.NoError(t, c.ToggleTakeoffLand(ctx))
	require.NoError(t, c.ToggleTakeoffLand(ctx))

	assert.Equal(t, []string{sim.ActionArm, sim.ActionTakeoff, sim.ActionLand}, v.Calls())
}

func TestKill(t *testing.T) {
	ctx := testContext(t)
	c, v := newTestController(t, sim.WithInitialState(core.LandedStateInAir, true))

	require.NoError(t, c.Kill(ctx))
	s, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, s.Armed)
	assert.Equal(t, []string{sim.ActionKill}, v.Calls())
}
