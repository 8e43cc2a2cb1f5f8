package movement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
)

func offboardVehicle(t *testing.T) *sim.Vehicle {
	t.Helper()
	ctx := context.Background()
	v := sim.New(sim.WithInitialState(core.LandedStateInAir, true))
	t.Cleanup(func() { _ = v.Close() })

	require.NoError(t, v.SetVelocityBody(ctx, core.StopVelocity))
	require.NoError(t, v.StartOffboard(ctx))
	return v
}

func velocities(v *sim.Vehicle) []core.VelocityBodyYawspeed {
	var out []core.VelocityBodyYawspeed
	for _, sp := range v.Setpoints() {
		if sp.Velocity != nil {
			out = append(out, *sp.Velocity)
		}
	}
	return out
}

func TestVelocityBodyInvertsUp(t *testing.T) {
	got := Velocity{Forward: 1, Right: -1, Up: 0.5, Yaw: 2}.Body()
	assert.Equal(t, core.VelocityBodyYawspeed{ForwardMS: 1, RightMS: -1, DownMS: -0.5, YawspeedDegS: 2}, got)
}

func TestNotOffboardIsNoop(t *testing.T) {
	ctx := context.Background()
	v := sim.New(sim.WithInitialState(core.LandedStateInAir, true))
	defer v.Close()
	m := NewMover(v, nil)

	require.NoError(t, m.SetVelocity(ctx, Velocity{Forward: 1}))
	require.NoError(t, m.SetPositionNedYaw(ctx, core.PositionNedYaw{NorthM: 5}))

	assert.Empty(t, v.Setpoints())
	assert.Empty(t, v.Calls())
}

func TestSetVelocity(t *testing.T) {
	ctx := context.Background()
	v := offboardVehicle(t)
	m := NewMover(v, nil)

	require.NoError(t, m.SetVelocity(ctx, Velocity{Up: 1}))

	got := velocities(v)
	require.Len(t, got, 2)
	assert.Equal(t, float32(-1), got[1].DownMS)
}

func TestSetPositionNedYaw(t *testing.T) {
	ctx := context.Background()
	v := offboardVehicle(t)
	m := NewMover(v, nil)

	target := core.PositionNedYaw{NorthM: 1, EastM: 2, DownM: -3, YawDeg: 90}
	require.NoError(t, m.SetPositionNedYaw(ctx, target))

	got, err := m.PositionNedYaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestMoveStopsAfterDuration(t *testing.T) {
	ctx := context.Background()
	v := offboardVehicle(t)
	clk := clocktesting.NewFakeClock(time.Now())
	m := NewMover(v, clk)

	done := make(chan error, 1)
	go func() { done <- m.Move(ctx, Right) }()

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	assert.Equal(t, []core.VelocityBodyYawspeed{core.StopVelocity, {RightMS: 1}}, velocities(v))

	clk.Step(time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, []core.VelocityBodyYawspeed{core.StopVelocity, {RightMS: 1}, core.StopVelocity}, velocities(v))
}

func TestMoveCancelledStillStops(t *testing.T) {
	v := offboardVehicle(t)
	clk := clocktesting.NewFakeClock(time.Now())
	m := NewMover(v, clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.MoveBodyVelocity(ctx, Velocity{Forward: 1}, time.Minute) }()

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	got := velocities(v)
	assert.Equal(t, core.StopVelocity, got[len(got)-1])
}

func TestNudges(t *testing.T) {
	tests := []struct {
		dir  Direction
		want Velocity
	}{
		{YawRight, Velocity{Yaw: 2}},
		{YawLeft, Velocity{Yaw: -2}},
		{Forward, Velocity{Forward: 1}},
		{Backward, Velocity{Forward: -1}},
		{Right, Velocity{Right: 1}},
		{Left, Velocity{Right: -1}},
		{Up, Velocity{Up: 0.5}},
		{Down, Velocity{Up: -0.5}},
	}

	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			v, d, ok := Nudge(tt.dir)
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, time.Second, d)
		})
	}

	_, _, ok := Nudge("sideways")
	assert.False(t, ok)
}
