package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

func TestTargetAddress(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"serial", Target{Serial: "/dev/ttyUSB0"}, "serial:///dev/ttyUSB0"},
		{"serial with baud", Target{Serial: "/dev/ttyUSB0", Baud: 57600}, "serial:///dev/ttyUSB0:57600"},
		{"udp any host", Target{Port: 14540}, "udp://:14540"},
		{"udp host", Target{Host: "192.168.1.10", Port: 14550}, "udp://192.168.1.10:14550"},
		{"udp ipv6", Target{Host: "::1", Port: 14550}, "udp://[::1]:14550"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Address())
		})
	}
}

func TestTargetFromOptions(t *testing.T) {
	o := options.NewVehicleOptions()
	assert.Equal(t, "udp://:14540", TargetFromOptions(o).Address())

	o.UseSerial = true
	assert.True(t, TargetFromOptions(o).IsSerial())
}

func TestConnect(t *testing.T) {
	v := sim.New(sim.WithDelay(5 * time.Millisecond))
	m := NewManager(v)
	defer m.Close()

	connected, err := m.IsConnected(context.Background())
	require.NoError(t, err)
	assert.False(t, connected)

	require.NoError(t, m.Connect(context.Background(), Target{Port: 14540}, time.Second))
	assert.True(t, m.IsReady())

	connected, err = m.IsConnected(context.Background())
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestConnectTimeoutWithoutPositionFix(t *testing.T) {
	v := sim.New(sim.WithoutPositionFix())
	m := NewManager(v)
	defer m.Close()

	err := m.Connect(context.Background(), Target{Port: 14540}, 30*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrConnectionTimeout)
	assert.False(t, m.IsReady())
}

func TestConnectTransportError(t *testing.T) {
	boom := errors.New("no such device")
	v := sim.New(sim.WithFailure(sim.ActionConnect, boom))
	m := NewManager(v)

	err := m.Connect(context.Background(), Target{Serial: "/dev/ttyUSB9"}, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrConnectionTimeout)
}

func TestCloseIsIdempotent(t *testing.T) {
	v := sim.New()
	m := NewManager(v)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.ErrorIs(t, v.Arm(context.Background()), core.ErrSessionClosed)
}
