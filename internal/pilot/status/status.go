// Package status assembles the pilot status shared by the remote and HTTP surfaces.
package status

import (
	"context"
	"time"

	"github.com/autopeer-io/dronecontrol/internal/pilot/flight"
)

// Status is a point-in-time view of the pilot.
type Status struct {
	VehicleID  string        `json:"vehicleID"`
	Ready      bool          `json:"ready"`
	Current    string        `json:"current,omitempty"`
	QueueDepth int           `json:"queueDepth"`
	Pending    []string      `json:"pending,omitempty"`
	Abandoned  int           `json:"abandoned,omitempty"`
	Phase      string        `json:"phase,omitempty"`
	State      *flight.State `json:"state,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Func produces the current status.
type Func func(ctx context.Context) Status

// Session reports vehicle readiness.
type Session interface {
	IsReady() bool
}

// Scheduler exposes the executing command and the queue contents.
type Scheduler interface {
	CurrentName() string
	PendingNames() []string
	Abandoned() int
}

const snapshotTimeout = 200 * time.Millisecond

// Reporter builds Status values.
type Reporter struct {
	vehicleID string
	session   Session
	scheduler Scheduler
	flight    *flight.Controller
}

// NewReporter returns a Reporter.
func NewReporter(vehicleID string, session Session, scheduler Scheduler, fc *flight.Controller) *Reporter {
	return &Reporter{vehicleID: vehicleID, session: session, scheduler: scheduler, flight: fc}
}

// Status reads the current status. Flight state is only read once the
// session is ready.
func (r *Reporter) Status(ctx context.Context) Status {
	pending := r.scheduler.PendingNames()
	st := Status{
		VehicleID:  r.vehicleID,
		Ready:      r.session.IsReady(),
		Current:    r.scheduler.CurrentName(),
		QueueDepth: len(pending),
		Pending:    pending,
		Abandoned:  r.scheduler.Abandoned(),
		Timestamp:  time.Now().UTC(),
	}
	if !st.Ready {
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	if snap, err := r.flight.Snapshot(ctx); err == nil {
		st.Phase = snap.Phase()
		st.State = &snap
	}
	return st
}
