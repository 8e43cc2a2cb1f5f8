package pilot

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/dronecontrol/internal/pilot/connection"
	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/input"
	"github.com/autopeer-io/dronecontrol/internal/pilot/recorder"
	"github.com/autopeer-io/dronecontrol/internal/pilot/remote"
	"github.com/autopeer-io/dronecontrol/internal/pilot/scheduler"
	"github.com/autopeer-io/dronecontrol/internal/pilot/server"
	"github.com/autopeer-io/dronecontrol/internal/pkg/metrics"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// Pilot ties the vehicle session, the command scheduler and every command
// producer together.
type Pilot struct {
	vehicleID      string
	target         connection.Target
	connectTimeout time.Duration

	vehicle   core.Vehicle
	session   *connection.Manager
	scheduler *scheduler.Scheduler
	servers   *server.Manager

	// Optional producers and sinks; nil when disabled.
	hub      *remote.Hub
	recorder *recorder.Recorder
	terminal *input.Terminal
}

// Queue returns the command queue shared by every producer.
func (p *Pilot) Queue() *scheduler.Queue {
	return p.scheduler.Queue()
}

// CommandTimeout returns the per-command timeout in effect.
func (p *Pilot) CommandTimeout() time.Duration {
	return p.scheduler.Timeout()
}

// SetCommandTimeout changes the per-command timeout of the running scheduler.
func (p *Pilot) SetCommandTimeout(d time.Duration) {
	p.scheduler.SetTimeout(d)
}

// Run connects to the vehicle and executes queued commands until ctx ends or
// the operator quits. A connection timeout is fatal and returned as is.
func (p *Pilot) Run(ctx context.Context) error {
	log.Info("Starting dronecontrol pilot", "vehicleID", p.vehicleID, "target", p.target)
	defer func() {
		if err := p.session.Close(); err != nil {
			log.Error(err, "Failed to close vehicle session")
		}
		metrics.SetLinkReady(false)
	}()

	g, ctx := errgroup.WithContext(ctx)

	// Producers start right away; commands received while connecting wait in the queue.
	if p.servers.Len() > 0 {
		g.Go(func() error { return p.servers.Start(ctx) })
	}
	if p.hub != nil {
		g.Go(func() error { return p.hub.Run(ctx) })
	}
	if p.terminal != nil {
		g.Go(func() error { return p.terminal.Run(ctx) })
	}

	g.Go(func() error {
		if err := p.session.Connect(ctx, p.target, p.connectTimeout); err != nil {
			if errors.Is(err, core.ErrConnectionTimeout) {
				log.Error(err, "Vehicle did not become ready in time", "timeout", p.connectTimeout)
			}
			return err
		}

		go p.watchLink(ctx)
		if p.recorder != nil {
			g.Go(func() error { return p.recorder.Run(ctx) })
		}
		return p.scheduler.Run(ctx)
	})

	err := g.Wait()
	if errors.Is(err, input.ErrQuit) {
		log.Info("Operator quit")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchLink mirrors the link state into the metrics until ctx ends.
func (p *Pilot) watchLink(ctx context.Context) {
	for s := range p.vehicle.ConnectionState().Subscribe(ctx) {
		metrics.SetLinkReady(s.IsConnected && p.session.IsReady())
		if !s.IsConnected {
			log.Warn("Vehicle link lost")
		}
	}
}
