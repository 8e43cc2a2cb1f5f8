// Package flight drives the vehicle through its flight phases and owns the
// fallback policy for failed transitions.
package flight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
	"github.com/autopeer-io/dronecontrol/internal/pkg/metrics"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// Controller implements takeoff, landing, hold, return-home and the offboard
// toggles on top of a vehicle session.
//
// Only hold and start-offboard escalate a failure, both to return-home.
// Every other failure is reported to the caller and left at that.
type Controller struct {
	vehicle        core.Vehicle
	landingTimeout time.Duration
	logger         log.Logger
}

// NewController returns a controller for vehicle. landingTimeout bounds
// every wait for a landing to finish.
func NewController(vehicle core.Vehicle, landingTimeout time.Duration) *Controller {
	return &Controller{
		vehicle:        vehicle,
		landingTimeout: landingTimeout,
		logger:         log.WithName("flight"),
	}
}

// Phase returns the current flight phase.
func (c *Controller) Phase(ctx context.Context) (string, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return s.Phase(), nil
}

// Takeoff arms the vehicle and climbs to the takeoff altitude. With
// checkState it is a no-op unless the vehicle is on the ground.
func (c *Controller) Takeoff(ctx context.Context, checkState bool) error {
	return c.run(ctx, EventTakeoff, checkState)
}

// Land lands in place and waits until the vehicle is down and disarmed.
func (c *Controller) Land(ctx context.Context) error {
	return c.run(ctx, EventLand)
}

// ReturnHome flies back to the launch point and waits for the landing.
func (c *Controller) ReturnHome(ctx context.Context) error {
	return c.run(ctx, EventReturnHome)
}

// Hold stops in place. If the vehicle refuses, it returns home instead.
func (c *Controller) Hold(ctx context.Context) error {
	return c.run(ctx, EventHold)
}

// StartOffboard hands control to setpoints. It is a no-op on the ground and
// returns home if the vehicle refuses.
func (c *Controller) StartOffboard(ctx context.Context) error {
	return c.run(ctx, EventStartOffboard)
}

// StopOffboard leaves offboard control for hold.
func (c *Controller) StopOffboard(ctx context.Context) error {
	return c.run(ctx, EventStopOffboard)
}

// ToggleOffboard starts or stops offboard control depending on its current state.
func (c *Controller) ToggleOffboard(ctx context.Context) error {
	active, err := c.vehicle.IsOffboardActive(ctx)
	if err != nil {
		return fmt.Errorf("read offboard state: %w", err)
	}
	if active {
		return c.StopOffboard(ctx)
	}
	return c.StartOffboard(ctx)
}

// ToggleTakeoffLand takes off from the ground and lands otherwise.
func (c *Controller) ToggleTakeoffLand(ctx context.Context) error {
	landed, err := telemetry.First(ctx, c.vehicle.LandedState())
	if err != nil {
		return fmt.Errorf("read landed state: %w", err)
	}
	if landed == core.LandedStateOnGround {
		return c.Takeoff(ctx, false)
	}
	return c.Land(ctx)
}

// Kill cuts the motors. There is no fallback.
func (c *Controller) Kill(ctx context.Context) error {
	c.logger.Warn("Killing engines")
	if err := c.vehicle.Kill(ctx); err != nil {
		return fmt.Errorf("kill: %w", err)
	}
	return nil
}

// LandingFinished waits until the vehicle reports being on the ground and
// then disarmed, bounded by the landing timeout.
func (c *Controller) LandingFinished(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.landingTimeout)
	defer cancel()

	if _, err := telemetry.WaitUntil(waitCtx, c.vehicle.LandedState(), telemetry.Equal(core.LandedStateOnGround)); err != nil {
		return landingErr(ctx, "wait for ground contact", err)
	}
	if _, err := telemetry.WaitUntil(waitCtx, c.vehicle.Armed(), telemetry.Equal(false)); err != nil {
		return landingErr(ctx, "wait for disarm", err)
	}

	c.logger.Info("Landing complete")
	return nil
}

func (c *Controller) run(ctx context.Context, event string, args ...any) error {
	state, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}
	return c.newMachine(state.Phase()).fire(ctx, event, args...)
}

func (c *Controller) takeoff(ctx context.Context) error {
	c.logger.Info("Arming")
	if err := c.vehicle.Arm(ctx); err != nil {
		// Usually "already armed"; takeoff decides whether it matters.
		c.logger.Warn("Arm failed, continuing", "error", err)
	}

	c.logger.Info("Taking off")
	if err := c.vehicle.Takeoff(ctx); err != nil {
		return fmt.Errorf("takeoff: %w", err)
	}
	if _, err := telemetry.WaitUntil(ctx, c.vehicle.LandedState(), telemetry.Equal(core.LandedStateInAir)); err != nil {
		return fmt.Errorf("wait for in air: %w", err)
	}

	c.logger.Info("Takeoff complete")
	return nil
}

func (c *Controller) land(ctx context.Context) error {
	c.logger.Info("Landing")
	var landErr error
	if err := c.vehicle.Land(ctx); err != nil {
		landErr = fmt.Errorf("land: %w", err)
		c.logger.Error(landErr, "Land command failed")
	}
	return errors.Join(landErr, c.LandingFinished(ctx))
}

func (c *Controller) returnHome(ctx context.Context) error {
	c.logger.Info("Returning home")
	var rtlErr error
	if err := c.vehicle.ReturnToLaunch(ctx); err != nil {
		rtlErr = fmt.Errorf("return to launch: %w", err)
		c.logger.Error(rtlErr, "Return to launch failed")
	}
	return errors.Join(rtlErr, c.LandingFinished(ctx))
}

func (c *Controller) hold(ctx context.Context) error {
	c.logger.Info("Holding position")
	if err := c.vehicle.Hold(ctx); err != nil {
		c.logger.Error(err, "Hold failed, returning home")
		metrics.FallbacksTotal.WithLabelValues(EventHold, EventReturnHome).Inc()
		return c.returnHome(ctx)
	}
	return nil
}

func (c *Controller) startOffboard(ctx context.Context) error {
	// The autopilot rejects offboard mode without a prior setpoint.
	if err := c.vehicle.SetVelocityBody(ctx, core.StopVelocity); err != nil {
		c.logger.Warn("Initial setpoint failed", "error", err)
	}
	if err := c.vehicle.StartOffboard(ctx); err != nil {
		c.logger.Error(err, "Starting offboard mode failed, returning home")
		metrics.FallbacksTotal.WithLabelValues(EventStartOffboard, EventReturnHome).Inc()
		return c.returnHome(ctx)
	}

	c.logger.Info("System in offboard mode")
	return nil
}

func (c *Controller) stopOffboard(ctx context.Context) error {
	if err := c.vehicle.SetVelocityBody(ctx, core.StopVelocity); err != nil {
		c.logger.Warn("Stop setpoint failed", "error", err)
	}
	if err := c.vehicle.StopOffboard(ctx); err != nil {
		return fmt.Errorf("stop offboard: %w", err)
	}

	c.logger.Info("System exited offboard mode")
	return nil
}

// landingErr reports the landing timeout unless the caller's own context ended first.
func landingErr(parent context.Context, step string, err error) error {
	if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", step, core.ErrLandingTimeout)
	}
	return fmt.Errorf("%s: %w", step, err)
}
