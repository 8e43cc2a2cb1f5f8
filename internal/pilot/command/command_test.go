package command

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/flight"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		command string
		params  string
		want    Command
		wantErr bool
	}{
		{"takeoff defaults to checked", NameTakeoff, ``, Takeoff{CheckState: true}, false},
		{"takeoff unchecked", NameTakeoff, `{"checkState": false}`, Takeoff{CheckState: false}, false},
		{"land", NameLand, `null`, Land{}, false},
		{"set velocity", NameSetVelocity, `{"forward": 1, "up": -0.5}`, SetVelocity{Velocity: movement.Velocity{Forward: 1, Up: -0.5}}, false},
		{"stop", NameSetVelocity, `{}`, Stop(), false},
		{"move body velocity", NameMoveBodyVelocity, `{"right": 1, "seconds": 2.5}`,
			MoveBodyVelocity{Velocity: movement.Velocity{Right: 1}, Duration: 2500 * time.Millisecond}, false},
		{"move body velocity default time", NameMoveBodyVelocity, `{"yaw": 2}`,
			MoveBodyVelocity{Velocity: movement.Velocity{Yaw: 2}, Duration: time.Second}, false},
		{"negative time", NameMoveBodyVelocity, `{"seconds": -1}`, nil, true},
		{"longest move", NameMoveBodyVelocity, `{"forward": 1, "seconds": 3600}`,
			MoveBodyVelocity{Velocity: movement.Velocity{Forward: 1}, Duration: MaxMoveDuration}, false},
		{"time beyond the longest move", NameMoveBodyVelocity, `{"forward": 1, "seconds": 3600.5}`, nil, true},
		{"time overflowing a duration", NameMoveBodyVelocity, `{"forward": 1, "seconds": 1e10}`, nil, true},
		{"position", NameSetPositionNedYaw, `{"northM": 1, "eastM": 2, "downM": -3, "yawDeg": 90}`,
			SetPositionNedYaw{Position: core.PositionNedYaw{NorthM: 1, EastM: 2, DownM: -3, YawDeg: 90}}, false},
		{"position needs params", NameSetPositionNedYaw, ``, nil, true},
		{"directional", "move_right", ``, Move{Direction: movement.Right}, false},
		{"unknown field", NameSetVelocity, `{"sideways": 1}`, nil, true},
		{"unknown command", "barrel_roll", ``, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.command, json.RawMessage(tt.params))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNamesAreParseable(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "move_yaw_left")
	assert.Contains(t, names, NameToggleTakeoffLand)
	assert.Len(t, names, 20)

	for _, n := range names {
		if n == NameSetPositionNedYaw {
			continue
		}
		cmd, err := Parse(n, nil)
		require.NoError(t, err, n)
		assert.Equal(t, n, cmd.Name())
	}
}

func TestRequires(t *testing.T) {
	assert.Equal(t, RequiresSession, Takeoff{}.Requires())
	assert.Equal(t, RequiresSession, ToggleOffboard{}.Requires())
	assert.Equal(t, RequiresOffboard, Stop().Requires())
	assert.Equal(t, RequiresOffboard, Move{Direction: movement.Up}.Requires())
}

func TestNudge(t *testing.T) {
	cmd, err := Nudge(movement.Down)
	require.NoError(t, err)
	assert.Equal(t, "move_down", cmd.Name())

	_, err = Nudge("sideways")
	assert.Error(t, err)
}

type readiness bool

func (r readiness) IsReady() bool { return bool(r) }

func TestDispatcherNeedsReadySession(t *testing.T) {
	v := sim.New()
	defer v.Close()
	d := NewDispatcher(readiness(false), flight.NewController(v, time.Second), movement.NewMover(v, nil))

	err := d.Execute(context.Background(), Takeoff{CheckState: true})
	assert.ErrorIs(t, err, core.ErrNotConnected)
	assert.Empty(t, v.Calls())
}

func TestDispatcherExecute(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v := sim.New()
	defer v.Close()
	d := NewDispatcher(readiness(true), flight.NewController(v, time.Second), movement.NewMover(v, nil))

	require.NoError(t, d.Execute(ctx, Takeoff{CheckState: true}))
	require.NoError(t, d.Execute(ctx, StartOffboard{}))
	require.NoError(t, d.Execute(ctx, SetPositionNedYaw{Position: core.PositionNedYaw{NorthM: 3}}))
	require.NoError(t, d.Execute(ctx, Stop()))
	require.NoError(t, d.Execute(ctx, StopOffboard{}))
	require.NoError(t, d.Execute(ctx, Land{}))

	assert.Equal(t, []string{
		sim.ActionArm, sim.ActionTakeoff,
		sim.ActionSetVelocity, sim.ActionStartOffboard,
		sim.ActionSetPosition,
		sim.ActionSetVelocity,
		sim.ActionSetVelocity, sim.ActionStopOffboard,
		sim.ActionLand,
	}, v.Calls())
}

func TestRequestBuild(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"command":"move_body_velocity","params":{"up":1},"interrupt":true}`), &req))
	assert.True(t, req.Interrupt)
	cmd, err := req.Build()
	require.NoError(t, err)
	assert.Equal(t, MoveBodyVelocity{Velocity: movement.Velocity{Up: 1}, Duration: time.Second}, cmd)

	cmd, err = Request{Interrupt: true}.Build()
	require.NoError(t, err)
	assert.Nil(t, cmd)

	_, err = Request{}.Build()
	assert.Error(t, err)
}
