package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// Manager owns the vehicle session: it opens the transport, waits until the
// vehicle is usable and releases it on shutdown.
type Manager struct {
	vehicle core.Vehicle
	logger  log.Logger

	ready     atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewManager wraps vehicle. The vehicle must not be connected yet.
func NewManager(vehicle core.Vehicle) *Manager {
	return &Manager{
		vehicle: vehicle,
		logger:  log.WithName("connection"),
	}
}

// Vehicle returns the session handle.
func (m *Manager) Vehicle() core.Vehicle {
	return m.vehicle
}

// Connect opens the transport to target, waits for the link and then for a
// global position fix. All three steps share one timeout; exceeding it yields
// core.ErrConnectionTimeout.
func (m *Manager) Connect(ctx context.Context, target Target, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := target.Address()
	m.logger.Info("Connecting to vehicle", "address", address, "timeout", timeout)

	if err := m.vehicle.Connect(ctx, address); err != nil {
		return m.connectErr(ctx, "open transport", err)
	}

	m.logger.Info("Waiting for vehicle to connect...")
	if _, err := telemetry.WaitUntil(ctx, m.vehicle.ConnectionState(), func(s core.ConnectionState) bool {
		return s.IsConnected
	}); err != nil {
		return m.connectErr(ctx, "wait for link", err)
	}
	m.logger.Info("Vehicle discovered")

	m.logger.Info("Waiting for vehicle to have a global position estimate...")
	if _, err := telemetry.WaitUntil(ctx, m.vehicle.Health(), func(h core.Health) bool {
		return h.IsGlobalPositionOK
	}); err != nil {
		return m.connectErr(ctx, "wait for position fix", err)
	}

	m.ready.Store(true)
	m.logger.Info("Vehicle is ready", "address", address)
	return nil
}

// IsConnected reads the latest link sample.
func (m *Manager) IsConnected(ctx context.Context) (bool, error) {
	s, err := telemetry.First(ctx, m.vehicle.ConnectionState())
	if err != nil {
		return false, err
	}
	return s.IsConnected, nil
}

// IsReady reports whether Connect completed.
func (m *Manager) IsReady() bool {
	return m.ready.Load()
}

// Close releases the transport. Only the first call has an effect.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.ready.Store(false)
		m.closeErr = m.vehicle.Close()
		m.logger.Info("Vehicle session closed")
	})
	return m.closeErr
}

func (m *Manager) connectErr(ctx context.Context, step string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", step, core.ErrConnectionTimeout)
	}
	return fmt.Errorf("%s: %w", step, err)
}
