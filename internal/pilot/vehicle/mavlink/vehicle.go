// Package mavlink implements core.Vehicle for PX4 autopilots over MAVLink.
package mavlink

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/telemetry"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

const (
	// Ground station ids, as used by MAVSDK.
	defaultSystemID    = 245
	defaultComponentID = 190

	defaultHeartbeatTimeout = 3 * time.Second
	defaultAckTimeout       = time.Second
	defaultAttempts         = 3
	defaultSetpointPeriod   = 50 * time.Millisecond
)

var _ core.Vehicle = (*Vehicle)(nil)

// link is the write side of a MAVLink node.
type link interface {
	WriteMessageAll(m message.Message) error
	Close()
}

// Option configures a Vehicle.
type Option func(*Vehicle)

// WithClock sets the clock used for ack waits, the link watchdog and setpoint streaming.
func WithClock(clk clock.WithTicker) Option {
	return func(v *Vehicle) { v.clock = clk }
}

// WithAckTimeout sets how long each command attempt waits for COMMAND_ACK.
func WithAckTimeout(d time.Duration) Option {
	return func(v *Vehicle) { v.ackTimeout = d }
}

// WithSystemID sets the ids this ground station uses on the link.
func WithSystemID(system, component uint8) Option {
	return func(v *Vehicle) {
		v.systemID = system
		v.componentID = component
	}
}

type streams struct {
	conn     *telemetry.Broadcaster[core.ConnectionState]
	health   *telemetry.Broadcaster[core.Health]
	landed   *telemetry.Broadcaster[core.LandedState]
	armed    *telemetry.Broadcaster[bool]
	mode     *telemetry.Broadcaster[core.FlightMode]
	position *telemetry.Broadcaster[core.Position]
	pvNed    *telemetry.Broadcaster[core.PositionVelocityNed]
	attitude *telemetry.Broadcaster[core.EulerAngle]
	velocity *telemetry.Broadcaster[core.VelocityNed]
	heading  *telemetry.Broadcaster[core.Heading]
}

// Vehicle is a MAVLink session with a single PX4 autopilot.
type Vehicle struct {
	clock            clock.WithTicker
	systemID         uint8
	componentID      uint8
	heartbeatTimeout time.Duration
	ackTimeout       time.Duration
	attempts         int
	setpointPeriod   time.Duration
	started          time.Time

	mu              sync.Mutex
	link            link
	targetSystem    uint8
	targetComponent uint8
	lastHeartbeat   time.Time
	health          core.Health
	setpoint        *common.MessageSetPositionTargetLocalNed
	acks            map[common.MAV_CMD]chan *common.MessageCommandAck

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	s      streams
	logger log.Logger
}

// New returns an unconnected vehicle.
func New(opts ...Option) *Vehicle {
	v := &Vehicle{
		clock:            clock.RealClock{},
		systemID:         defaultSystemID,
		componentID:      defaultComponentID,
		heartbeatTimeout: defaultHeartbeatTimeout,
		ackTimeout:       defaultAckTimeout,
		attempts:         defaultAttempts,
		setpointPeriod:   defaultSetpointPeriod,
		acks:             make(map[common.MAV_CMD]chan *common.MessageCommandAck),
		s: streams{
			conn:     telemetry.NewBroadcasterWith(core.ConnectionState{}),
			health:   telemetry.NewBroadcasterWith(core.Health{}),
			landed:   telemetry.NewBroadcasterWith(core.LandedStateUnknown),
			armed:    telemetry.NewBroadcasterWith(false),
			mode:     telemetry.NewBroadcasterWith(core.FlightModeUnknown),
			position: telemetry.NewBroadcaster[core.Position](),
			pvNed:    telemetry.NewBroadcaster[core.PositionVelocityNed](),
			attitude: telemetry.NewBroadcaster[core.EulerAngle](),
			velocity: telemetry.NewBroadcaster[core.VelocityNed](),
			heading:  telemetry.NewBroadcaster[core.Heading](),
		},
		logger: log.WithName("mavlink"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Connect opens the transport named by address and starts decoding. The
// link counts as up once the first autopilot heartbeat arrives.
func (v *Vehicle) Connect(ctx context.Context, address string) error {
	if v.closed.Load() {
		return core.ErrSessionClosed
	}

	ep, err := ParseAddress(address)
	if err != nil {
		return err
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:      []gomavlib.EndpointConf{ep},
		Dialect:        common.Dialect,
		OutVersion:     gomavlib.V2,
		OutSystemID:    v.systemID,
		OutComponentID: v.componentID,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", address, err)
	}

	v.logger.Info("MAVLink transport open", "address", address)
	return v.attach(node, node.Events())
}

func (v *Vehicle) attach(l link, events <-chan gomavlib.Event) error {
	v.mu.Lock()
	if v.link != nil {
		v.mu.Unlock()
		l.Close()
		return fmt.Errorf("vehicle already connected")
	}
	v.link = l
	v.started = v.clock.Now()
	v.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	v.wg.Add(3)
	go func() {
		defer v.wg.Done()
		v.readLoop(events)
	}()
	go func() {
		defer v.wg.Done()
		v.watchdog(ctx)
	}()
	go func() {
		defer v.wg.Done()
		v.streamSetpoints(ctx)
	}()
	return nil
}

// Close stops all background work and releases the transport.
func (v *Vehicle) Close() error {
	v.closeOnce.Do(func() {
		v.closed.Store(true)

		v.mu.Lock()
		l := v.link
		v.mu.Unlock()

		if v.cancel != nil {
			v.cancel()
		}
		if l != nil {
			l.Close()
		}
		v.wg.Wait()

		v.s.conn.Publish(core.ConnectionState{})
		v.s.conn.Close()
		v.s.health.Close()
		v.s.landed.Close()
		v.s.armed.Close()
		v.s.mode.Close()
		v.s.position.Close()
		v.s.pvNed.Close()
		v.s.attitude.Close()
		v.s.velocity.Close()
		v.s.heading.Close()
		v.logger.Info("MAVLink session closed")
	})
	return nil
}

func (v *Vehicle) ConnectionState() telemetry.Stream[core.ConnectionState] { return v.s.conn }

func (v *Vehicle) Health() telemetry.Stream[core.Health] { return v.s.health }

func (v *Vehicle) LandedState() telemetry.Stream[core.LandedState] { return v.s.landed }

func (v *Vehicle) Armed() telemetry.Stream[bool] { return v.s.armed }

func (v *Vehicle) FlightMode() telemetry.Stream[core.FlightMode] { return v.s.mode }

func (v *Vehicle) Position() telemetry.Stream[core.Position] { return v.s.position }

func (v *Vehicle) PositionVelocityNed() telemetry.Stream[core.PositionVelocityNed] { return v.s.pvNed }

func (v *Vehicle) Attitude() telemetry.Stream[core.EulerAngle] { return v.s.attitude }

func (v *Vehicle) VelocityNed() telemetry.Stream[core.VelocityNed] { return v.s.velocity }

func (v *Vehicle) Heading() telemetry.Stream[core.Heading] { return v.s.heading }

func (v *Vehicle) readLoop(events <-chan gomavlib.Event) {
	for evt := range events {
		switch e := evt.(type) {
		case *gomavlib.EventFrame:
			v.handle(e.SystemID(), e.ComponentID(), e.Message())
		case *gomavlib.EventChannelOpen:
			v.logger.Info("Channel open", "channel", fmt.Sprint(e.Channel))
		case *gomavlib.EventChannelClose:
			v.logger.Warn("Channel closed", "channel", fmt.Sprint(e.Channel))
		case *gomavlib.EventParseError:
			v.logger.Debug("Dropped malformed frame", "error", e.Error)
		}
	}
}

func (v *Vehicle) handle(systemID, componentID uint8, msg message.Message) {
	switch m := msg.(type) {
	case *common.MessageHeartbeat:
		v.onHeartbeat(systemID, componentID, m)

	case *common.MessageExtendedSysState:
		publishChanged(v.s.landed, landedState(m.LandedState))

	case *common.MessageGpsRawInt:
		v.updateHealth(func(h *core.Health) {
			h.IsGlobalPositionOK = m.FixType >= common.GPS_FIX_TYPE_3D_FIX
		})

	case *common.MessageHomePosition:
		v.updateHealth(func(h *core.Health) { h.IsHomePositionOK = true })

	case *common.MessageGlobalPositionInt:
		v.s.position.Publish(core.Position{
			LatitudeDeg:       float64(m.Lat) / 1e7,
			LongitudeDeg:      float64(m.Lon) / 1e7,
			AbsoluteAltitudeM: float32(m.Alt) / 1e3,
			RelativeAltitudeM: float32(m.RelativeAlt) / 1e3,
		})
		if m.Hdg != math.MaxUint16 {
			v.s.heading.Publish(core.Heading{HeadingDeg: float64(m.Hdg) / 100})
		}

	case *common.MessageLocalPositionNed:
		vel := core.VelocityNed{NorthMS: m.Vx, EastMS: m.Vy, DownMS: m.Vz}
		v.s.pvNed.Publish(core.PositionVelocityNed{
			Position: core.PositionNed{NorthM: m.X, EastM: m.Y, DownM: m.Z},
			Velocity: vel,
		})
		v.s.velocity.Publish(vel)
		v.updateHealth(func(h *core.Health) { h.IsLocalPositionOK = true })

	case *common.MessageAttitude:
		v.s.attitude.Publish(core.EulerAngle{
			RollDeg:  degrees(m.Roll),
			PitchDeg: degrees(m.Pitch),
			YawDeg:   degrees(m.Yaw),
		})

	case *common.MessageCommandAck:
		v.mu.Lock()
		ch := v.acks[m.Command]
		v.mu.Unlock()
		if ch != nil {
			select {
			case ch <- m:
			default:
			}
		}
	}
}

func (v *Vehicle) onHeartbeat(systemID, componentID uint8, m *common.MessageHeartbeat) {
	if m.Type == common.MAV_TYPE_GCS || m.Autopilot == common.MAV_AUTOPILOT_INVALID {
		return
	}

	v.mu.Lock()
	if v.targetSystem == 0 {
		v.logger.Info("Autopilot discovered", "system", systemID, "component", componentID)
	}
	v.targetSystem = systemID
	v.targetComponent = componentID
	v.lastHeartbeat = v.clock.Now()
	v.mu.Unlock()

	if publishChanged(v.s.conn, core.ConnectionState{IsConnected: true}) {
		v.logger.Info("Vehicle link up")
	}
	publishChanged(v.s.armed, m.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0)
	if m.BaseMode&common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED != 0 {
		publishChanged(v.s.mode, decodeMode(m.CustomMode))
	}
}

func (v *Vehicle) updateHealth(fn func(h *core.Health)) {
	v.mu.Lock()
	fn(&v.health)
	v.health.IsArmable = v.health.IsGlobalPositionOK && v.health.IsLocalPositionOK && v.health.IsHomePositionOK
	h := v.health
	v.mu.Unlock()

	publishChanged(v.s.health, h)
}

// watchdog marks the link down when heartbeats stop.
func (v *Vehicle) watchdog(ctx context.Context) {
	ticker := v.clock.NewTicker(v.heartbeatTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		v.mu.Lock()
		last := v.lastHeartbeat
		v.mu.Unlock()

		if last.IsZero() || v.clock.Since(last) <= v.heartbeatTimeout {
			continue
		}
		if publishChanged(v.s.conn, core.ConnectionState{}) {
			v.logger.Warn("Vehicle link lost", "lastHeartbeat", last)
		}
	}
}

// session returns the write side and the autopilot ids, or why commands
// cannot be sent yet.
func (v *Vehicle) session() (link, uint8, uint8, error) {
	if v.closed.Load() {
		return nil, 0, 0, core.ErrSessionClosed
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.link == nil || v.targetSystem == 0 {
		return nil, 0, 0, core.ErrNotConnected
	}
	return v.link, v.targetSystem, v.targetComponent, nil
}

func (v *Vehicle) bootMillis() uint32 {
	return uint32(v.clock.Since(v.started).Milliseconds())
}

// publishChanged publishes val unless it equals the latest value.
func publishChanged[T comparable](b *telemetry.Broadcaster[T], val T) bool {
	if cur, ok := b.Latest(); ok && cur == val {
		return false
	}
	b.Publish(val)
	return true
}

func degrees(rad float32) float32 {
	return rad * 180 / math.Pi
}

func radians(deg float32) float32 {
	return deg * math.Pi / 180
}
