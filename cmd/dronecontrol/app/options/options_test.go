package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPilotOptionsFlags(t *testing.T) {
	o := NewPilotOptions()
	fss := o.Flags()

	for _, name := range []string{"vehicle", "scheduler", "mqtt", "http", "grpc", "record", "log", "input"} {
		assert.Contains(t, fss.Order, name)
	}

	fs := fss.FlagSet("scheduler")
	require.NoError(t, fs.Parse([]string{"--scheduler.command-timeout=3s"}))
	assert.Equal(t, 3*time.Second, o.SchedulerOptions.CommandTimeout)
}

func TestPilotOptionsValidate(t *testing.T) {
	o := NewPilotOptions()
	require.NoError(t, o.Validate())

	o.VehicleOptions.ID = ""
	o.SchedulerOptions.CommandTimeout = 0
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vehicle.id")
	assert.Contains(t, err.Error(), "command-timeout")
}

func TestLandingTimeoutBelowCommandTimeout(t *testing.T) {
	o := NewPilotOptions()
	assert.Less(t, o.VehicleOptions.LandingTimeout, o.SchedulerOptions.CommandTimeout)

	o.VehicleOptions.LandingTimeout = 30 * time.Second
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "landing-timeout")

	o.SchedulerOptions.CommandTimeout = time.Minute
	assert.NoError(t, o.Validate())
}

func TestPilotOptionsConfig(t *testing.T) {
	o := NewPilotOptions()
	o.Keyboard = false

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.VehicleOptions, cfg.VehicleOptions)
	assert.Same(t, o.SchedulerOptions, cfg.SchedulerOptions)
	assert.False(t, cfg.Keyboard)
}
