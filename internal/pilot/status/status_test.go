package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/flight"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
)

type ready bool

func (r ready) IsReady() bool { return bool(r) }

type fakeScheduler struct {
	current   string
	pending   []string
	abandoned int
}

func (f fakeScheduler) CurrentName() string    { return f.current }
func (f fakeScheduler) PendingNames() []string { return f.pending }
func (f fakeScheduler) Abandoned() int         { return f.abandoned }

func TestStatusNotReady(t *testing.T) {
	v := sim.New()
	defer v.Close()
	r := NewReporter("drone-1", ready(false), fakeScheduler{pending: []string{"takeoff"}}, flight.NewController(v, time.Second))

	st := r.Status(context.Background())
	assert.Equal(t, "drone-1", st.VehicleID)
	assert.False(t, st.Ready)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Empty(t, st.Phase)
	assert.Nil(t, st.State)
}

func TestStatusReady(t *testing.T) {
	v := sim.New(sim.WithInitialState(core.LandedStateInAir, true))
	defer v.Close()
	r := NewReporter("drone-1", ready(true), fakeScheduler{current: "land", abandoned: 1}, flight.NewController(v, time.Second))

	st := r.Status(context.Background())
	assert.True(t, st.Ready)
	assert.Equal(t, "land", st.Current)
	assert.Equal(t, 0, st.QueueDepth)
	assert.Equal(t, 1, st.Abandoned)
	assert.Equal(t, flight.PhaseAirborne, st.Phase)
	require.NotNil(t, st.State)
	assert.True(t, st.State.Armed)
}
