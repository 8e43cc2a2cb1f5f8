package pilot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

func testConfig() *Config {
	vehicle := options.NewVehicleOptions()
	vehicle.ConnectTimeout = 200 * time.Millisecond
	vehicle.Simulate = true

	sched := options.NewSchedulerOptions()
	sched.IdlePoll = 10 * time.Millisecond

	httpOpts := options.NewHttpOptions()
	httpOpts.Enabled = false

	return &Config{
		VehicleOptions:   vehicle,
		SchedulerOptions: sched,
		MqttOptions:      options.NewMqttOptions(),
		HttpOptions:      httpOpts,
		GrpcOptions:      options.NewGrpcOptions(),
		RecordOptions:    options.NewRecordOptions(),
	}
}

func TestNewPilot(t *testing.T) {
	p, err := testConfig().NewPilot()
	require.NoError(t, err)
	assert.Nil(t, p.hub)
	assert.Nil(t, p.recorder)
	assert.Nil(t, p.terminal)
	assert.Equal(t, 0, p.servers.Len())

	cfg := testConfig()
	cfg.VehicleOptions.ID = ""
	_, err = cfg.NewPilot()
	assert.Error(t, err)
}

func TestRunConnectTimeout(t *testing.T) {
	p, err := testConfig().build("drone-test", sim.New(sim.WithoutPositionFix()))
	require.NoError(t, err)

	err = p.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrConnectionTimeout)
}

func TestRunExecutesQueuedCommands(t *testing.T) {
	v := sim.New()
	p, err := testConfig().build("drone-test", v)
	require.NoError(t, err)

	// Queued before the session is ready; executed once it is.
	p.Queue().Enqueue(command.Takeoff{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		calls := v.Calls()
		return len(calls) >= 3 && calls[2] == sim.ActionTakeoff
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{sim.ActionConnect, sim.ActionArm, sim.ActionTakeoff}, v.Calls()[:3])

	p.SetCommandTimeout(time.Second)
	assert.Equal(t, time.Second, p.CommandTimeout())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("pilot did not stop")
	}
}
