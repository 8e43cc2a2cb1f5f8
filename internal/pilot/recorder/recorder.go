// Package recorder periodically writes a telemetry snapshot to a file log.
package recorder

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

// NotAvailable marks a value that could not be read.
const NotAvailable = "N/A"

// Session reports vehicle readiness.
type Session interface {
	IsReady() bool
}

type Recorder struct {
	vehicle  core.Telemetry
	session  Session
	sink     log.Logger
	interval time.Duration
	clock    clock.WithTicker
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the clock driving the recording interval.
func WithClock(clk clock.WithTicker) Option {
	return func(r *Recorder) { r.clock = clk }
}

// New returns a recorder writing to sink every interval.
func New(vehicle core.Telemetry, session Session, sink log.Logger, interval time.Duration, opts ...Option) *Recorder {
	r := &Recorder{vehicle: vehicle, session: session, sink: sink, interval: interval, clock: clock.RealClock{}}
	for _, fn := range opts {
		fn(r)
	}
	return r
}

// Open creates the file sink named in opts.
func Open(opts *options.RecordOptions, vehicle core.Telemetry, session Session) (*Recorder, error) {
	sink, err := log.NewFileLogger(opts.Path)
	if err != nil {
		return nil, err
	}
	return New(vehicle, session, sink, opts.Interval), nil
}

// Run records until ctx ends.
func (r *Recorder) Run(ctx context.Context) error {
	log.Info("Recording telemetry", "interval", r.interval)
	defer func() { _ = r.sink.Sync() }()

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			r.Record(ctx)
		}
	}
}

// Record writes one snapshot. Every value is N/A while the session is not ready.
func (r *Recorder) Record(ctx context.Context) {
	if !r.session.IsReady() {
		r.sink.Info("telemetry",
			"landedState", NotAvailable,
			"flightMode", NotAvailable,
			"position", NotAvailable,
			"attitude", NotAvailable,
			"velocity", NotAvailable,
		)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()
	r.sink.Info("telemetry",
		"landedState", read(ctx, r.vehicle.LandedState()),
		"flightMode", read(ctx, r.vehicle.FlightMode()),
		"position", read(ctx, r.vehicle.Position()),
		"attitude", read(ctx, r.vehicle.Attitude()),
		"velocity", read(ctx, r.vehicle.VelocityNed()),
	)
}

func read[T any](ctx context.Context, s telemetry.Stream[T]) any {
	v, err := telemetry.First(ctx, s)
	if err != nil {
		return NotAvailable
	}
	if st, ok := any(v).(fmt.Stringer); ok {
		return st.String()
	}
	return v
}
