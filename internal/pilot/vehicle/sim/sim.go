// Package sim provides an in-memory vehicle with scripted telemetry.
//
// Actions move the simulated vehicle through the same phases a PX4 autopilot
// reports (armed, taking off, in air, landing, on ground), each step after a
// configurable delay. Any action can be made to fail or to stall.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// Action names used for call recording and failure injection.
const (
	ActionConnect        = "connect"
	ActionArm            = "arm"
	ActionTakeoff        = "takeoff"
	ActionLand           = "land"
	ActionReturnToLaunch = "return_to_launch"
	ActionHold           = "hold"
	ActionKill           = "kill"
	ActionSetVelocity    = "set_velocity_body"
	ActionSetPosition    = "set_position_ned"
	ActionStartOffboard  = "start_offboard"
	ActionStopOffboard   = "stop_offboard"
)

var _ core.Vehicle = (*Vehicle)(nil)

// Setpoint is one recorded offboard setpoint. Exactly one of the pointers is set.
type Setpoint struct {
	Velocity *core.VelocityBodyYawspeed
	Position *core.PositionNedYaw
	At       time.Time
}

// Option configures a simulated vehicle.
type Option func(*Vehicle)

// WithDelay sets the time each scripted phase change takes.
func WithDelay(d time.Duration) Option {
	return func(v *Vehicle) { v.delay = d }
}

// WithFailure makes action fail with err until cleared.
func WithFailure(action string, err error) Option {
	return func(v *Vehicle) { v.failures[action] = err }
}

// WithoutPositionFix keeps the global position check failing.
func WithoutPositionFix() Option {
	return func(v *Vehicle) { v.gpsFix = false }
}

// WithInitialState starts the vehicle in the given phase.
func WithInitialState(landed core.LandedState, armed bool) Option {
	return func(v *Vehicle) {
		v.initialLanded = landed
		v.initialArmed = armed
	}
}

// Vehicle is a simulated autopilot.
type Vehicle struct {
	mu            sync.Mutex
	delay         time.Duration
	gpsFix        bool
	failures      map[string]error
	stalls        map[string]bool
	calls         []string
	setpoints     []Setpoint
	hasSetpoint   bool
	offboard      bool
	closed        bool
	timers        []*time.Timer
	initialLanded core.LandedState
	initialArmed  bool

	connState *telemetry.Broadcaster[core.ConnectionState]
	health    *telemetry.Broadcaster[core.Health]
	landed    *telemetry.Broadcaster[core.LandedState]
	armed     *telemetry.Broadcaster[bool]
	mode      *telemetry.Broadcaster[core.FlightMode]
	position  *telemetry.Broadcaster[core.Position]
	pvNed     *telemetry.Broadcaster[core.PositionVelocityNed]
	attitude  *telemetry.Broadcaster[core.EulerAngle]
	velocity  *telemetry.Broadcaster[core.VelocityNed]
	heading   *telemetry.Broadcaster[core.Heading]
}

// New returns a disconnected simulated vehicle resting on the ground.
func New(opts ...Option) *Vehicle {
	v := &Vehicle{
		gpsFix:        true,
		failures:      make(map[string]error),
		stalls:        make(map[string]bool),
		initialLanded: core.LandedStateOnGround,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.connState = telemetry.NewBroadcasterWith(core.ConnectionState{})
	v.health = telemetry.NewBroadcasterWith(core.Health{})
	v.landed = telemetry.NewBroadcasterWith(v.initialLanded)
	v.armed = telemetry.NewBroadcasterWith(v.initialArmed)
	v.mode = telemetry.NewBroadcasterWith(core.FlightModeReady)
	v.position = telemetry.NewBroadcasterWith(core.Position{})
	v.pvNed = telemetry.NewBroadcasterWith(core.PositionVelocityNed{})
	v.attitude = telemetry.NewBroadcasterWith(core.EulerAngle{})
	v.velocity = telemetry.NewBroadcasterWith(core.VelocityNed{})
	v.heading = telemetry.NewBroadcasterWith(core.Heading{})
	if v.initialLanded != core.LandedStateOnGround {
		v.mode.Publish(core.FlightModeHold)
	}
	return v
}

// Fail makes action fail with err. A nil err clears the failure.
func (v *Vehicle) Fail(action string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err == nil {
		delete(v.failures, action)
		return
	}
	v.failures[action] = err
}

// Stall makes action block until its context ends.
func (v *Vehicle) Stall(action string, stall bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stalls[action] = stall
}

// Calls returns the actions issued so far, in order.
func (v *Vehicle) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

// Setpoints returns the offboard setpoints received so far, in order.
func (v *Vehicle) Setpoints() []Setpoint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Setpoint(nil), v.setpoints...)
}

// SetLandedState publishes a landed state sample as if the autopilot sent it.
func (v *Vehicle) SetLandedState(s core.LandedState) { v.landed.Publish(s) }

// SetArmed publishes an armed sample as if the autopilot sent it.
func (v *Vehicle) SetArmed(armed bool) { v.armed.Publish(armed) }

// SetConnected publishes a link state sample.
func (v *Vehicle) SetConnected(connected bool) {
	v.connState.Publish(core.ConnectionState{IsConnected: connected})
}

func (v *Vehicle) Connect(ctx context.Context, address string) error {
	if err := v.begin(ctx, ActionConnect); err != nil {
		return err
	}
	log.Info("Simulated vehicle connecting", "address", address)

	v.after(1, func() { v.connState.Publish(core.ConnectionState{IsConnected: true}) })
	v.after(2, func() {
		v.mu.Lock()
		fix := v.gpsFix
		v.mu.Unlock()
		v.health.Publish(core.Health{
			IsGlobalPositionOK: fix,
			IsLocalPositionOK:  fix,
			IsHomePositionOK:   fix,
			IsArmable:          fix,
		})
	})
	return nil
}

func (v *Vehicle) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	for _, t := range v.timers {
		t.Stop()
	}
	v.timers = nil
	v.mu.Unlock()

	v.connState.Publish(core.ConnectionState{IsConnected: false})
	v.connState.Close()
	v.health.Close()
	v.landed.Close()
	v.armed.Close()
	v.mode.Close()
	v.position.Close()
	v.pvNed.Close()
	v.attitude.Close()
	v.velocity.Close()
	v.heading.Close()
	return nil
}

func (v *Vehicle) Arm(ctx context.Context) error {
	if err := v.begin(ctx, ActionArm); err != nil {
		return err
	}
	if armed, _ := v.armed.Latest(); armed {
		return nil
	}
	if landed, _ := v.landed.Latest(); landed != core.LandedStateOnGround {
		return core.Reject(ActionArm, "COMMAND_DENIED")
	}
	v.armed.Publish(true)
	return nil
}

func (v *Vehicle) Takeoff(ctx context.Context) error {
	if err := v.begin(ctx, ActionTakeoff); err != nil {
		return err
	}
	if armed, _ := v.armed.Latest(); !armed {
		return core.Reject(ActionTakeoff, "COMMAND_DENIED")
	}

	v.mode.Publish(core.FlightModeTakeoff)
	v.landed.Publish(core.LandedStateTakingOff)
	v.after(1, func() {
		v.landed.Publish(core.LandedStateInAir)
		v.mode.Publish(core.FlightModeHold)
		v.position.Publish(core.Position{RelativeAltitudeM: 2.5})
	})
	return nil
}

func (v *Vehicle) Land(ctx context.Context) error {
	if err := v.begin(ctx, ActionLand); err != nil {
		return err
	}
	v.descend(core.FlightModeLand)
	return nil
}

func (v *Vehicle) ReturnToLaunch(ctx context.Context) error {
	if err := v.begin(ctx, ActionReturnToLaunch); err != nil {
		return err
	}
	v.descend(core.FlightModeReturnToLaunch)
	return nil
}

func (v *Vehicle) Hold(ctx context.Context) error {
	if err := v.begin(ctx, ActionHold); err != nil {
		return err
	}
	v.setOffboard(false)
	v.mode.Publish(core.FlightModeHold)
	return nil
}

func (v *Vehicle) Kill(ctx context.Context) error {
	if err := v.begin(ctx, ActionKill); err != nil {
		return err
	}
	v.setOffboard(false)
	v.armed.Publish(false)
	v.landed.Publish(core.LandedStateOnGround)
	v.position.Publish(core.Position{})
	return nil
}

func (v *Vehicle) SetVelocityBody(ctx context.Context, vel core.VelocityBodyYawspeed) error {
	if err := v.begin(ctx, ActionSetVelocity); err != nil {
		return err
	}
	v.mu.Lock()
	v.setpoints = append(v.setpoints, Setpoint{Velocity: &vel, At: time.Now()})
	v.hasSetpoint = true
	v.mu.Unlock()

	// Heading is fixed north, so body forward/right map to north/east.
	v.velocity.Publish(core.VelocityNed{NorthMS: vel.ForwardMS, EastMS: vel.RightMS, DownMS: vel.DownMS})
	return nil
}

func (v *Vehicle) SetPositionNed(ctx context.Context, p core.PositionNedYaw) error {
	if err := v.begin(ctx, ActionSetPosition); err != nil {
		return err
	}
	v.mu.Lock()
	v.setpoints = append(v.setpoints, Setpoint{Position: &p, At: time.Now()})
	v.hasSetpoint = true
	v.mu.Unlock()

	v.pvNed.Publish(core.PositionVelocityNed{
		Position: core.PositionNed{NorthM: p.NorthM, EastM: p.EastM, DownM: p.DownM},
	})
	v.heading.Publish(core.Heading{HeadingDeg: float64(p.YawDeg)})
	return nil
}

func (v *Vehicle) StartOffboard(ctx context.Context) error {
	if err := v.begin(ctx, ActionStartOffboard); err != nil {
		return err
	}
	v.mu.Lock()
	ready := v.hasSetpoint
	v.mu.Unlock()
	if !ready {
		return core.Reject(ActionStartOffboard, "NO_SETPOINT_SET")
	}

	v.setOffboard(true)
	v.mode.Publish(core.FlightModeOffboard)
	return nil
}

func (v *Vehicle) StopOffboard(ctx context.Context) error {
	if err := v.begin(ctx, ActionStopOffboard); err != nil {
		return err
	}
	v.setOffboard(false)
	v.mode.Publish(core.FlightModeHold)
	return nil
}

func (v *Vehicle) IsOffboardActive(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false, core.ErrSessionClosed
	}
	return v.offboard, nil
}

func (v *Vehicle) ConnectionState() telemetry.Stream[core.ConnectionState] { return v.connState }

func (v *Vehicle) Health() telemetry.Stream[core.Health] { return v.health }

func (v *Vehicle) LandedState() telemetry.Stream[core.LandedState] { return v.landed }

func (v *Vehicle) Armed() telemetry.Stream[bool] { return v.armed }

func (v *Vehicle) FlightMode() telemetry.Stream[core.FlightMode] { return v.mode }

func (v *Vehicle) Position() telemetry.Stream[core.Position] { return v.position }

func (v *Vehicle) PositionVelocityNed() telemetry.Stream[core.PositionVelocityNed] { return v.pvNed }

func (v *Vehicle) Attitude() telemetry.Stream[core.EulerAngle] { return v.attitude }

func (v *Vehicle) VelocityNed() telemetry.Stream[core.VelocityNed] { return v.velocity }

func (v *Vehicle) Heading() telemetry.Stream[core.Heading] { return v.heading }

// begin records the call and applies injected failures and stalls.
func (v *Vehicle) begin(ctx context.Context, action string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return core.ErrSessionClosed
	}
	v.calls = append(v.calls, action)
	err := v.failures[action]
	stall := v.stalls[action]
	v.mu.Unlock()

	if stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// descend scripts Landing -> OnGround -> disarmed.
func (v *Vehicle) descend(mode core.FlightMode) {
	v.setOffboard(false)
	v.mode.Publish(mode)
	v.landed.Publish(core.LandedStateLanding)
	v.after(1, func() {
		v.landed.Publish(core.LandedStateOnGround)
		v.position.Publish(core.Position{})
	})
	v.after(2, func() { v.armed.Publish(false) })
}

func (v *Vehicle) setOffboard(active bool) {
	v.mu.Lock()
	v.offboard = active
	v.mu.Unlock()
}

// after runs fn once steps delays have passed, or right away without a delay.
func (v *Vehicle) after(steps int, fn func()) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if v.delay > 0 {
		v.timers = append(v.timers, time.AfterFunc(time.Duration(steps)*v.delay, fn))
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()
	fn()
}
