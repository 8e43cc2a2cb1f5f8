package core

// LandedState is the ground-contact phase reported by the vehicle.
type LandedState int

const (
	LandedStateUnknown LandedState = iota
	LandedStateOnGround
	LandedStateInAir
	LandedStateTakingOff
	LandedStateLanding
)

func (s LandedState) String() string {
	switch s {
	case LandedStateOnGround:
		return "OnGround"
	case LandedStateInAir:
		return "InAir"
	case LandedStateTakingOff:
		return "TakingOff"
	case LandedStateLanding:
		return "Landing"
	default:
		return "Unknown"
	}
}

// FlightMode is the autopilot's active mode.
type FlightMode int

const (
	FlightModeUnknown FlightMode = iota
	FlightModeReady
	FlightModeTakeoff
	FlightModeHold
	FlightModeMission
	FlightModeReturnToLaunch
	FlightModeLand
	FlightModeOffboard
	FlightModeManual
	FlightModeAltctl
	FlightModePosctl
	FlightModeAcro
	FlightModeStabilized
)

var flightModeNames = map[FlightMode]string{
	FlightModeReady:          "Ready",
	FlightModeTakeoff:        "Takeoff",
	FlightModeHold:           "Hold",
	FlightModeMission:        "Mission",
	FlightModeReturnToLaunch: "ReturnToLaunch",
	FlightModeLand:           "Land",
	FlightModeOffboard:       "Offboard",
	FlightModeManual:         "Manual",
	FlightModeAltctl:         "Altctl",
	FlightModePosctl:         "Posctl",
	FlightModeAcro:           "Acro",
	FlightModeStabilized:     "Stabilized",
}

func (m FlightMode) String() string {
	if name, ok := flightModeNames[m]; ok {
		return name
	}
	return "Unknown"
}

// ConnectionState is a link liveness sample.
type ConnectionState struct {
	IsConnected bool `json:"isConnected"`
}

// Health carries the readiness checks of the autopilot.
type Health struct {
	IsGlobalPositionOK bool `json:"isGlobalPositionOk"`
	IsLocalPositionOK  bool `json:"isLocalPositionOk"`
	IsHomePositionOK   bool `json:"isHomePositionOk"`
	IsArmable          bool `json:"isArmable"`
}

// Position is a global position sample.
type Position struct {
	LatitudeDeg       float64 `json:"latitudeDeg"`
	LongitudeDeg      float64 `json:"longitudeDeg"`
	AbsoluteAltitudeM float32 `json:"absoluteAltitudeM"`
	RelativeAltitudeM float32 `json:"relativeAltitudeM"`
}

// PositionNed is a position in the local north-east-down frame.
type PositionNed struct {
	NorthM float32 `json:"northM"`
	EastM  float32 `json:"eastM"`
	DownM  float32 `json:"downM"`
}

// VelocityNed is a velocity in the local north-east-down frame.
type VelocityNed struct {
	NorthMS float32 `json:"northMS"`
	EastMS  float32 `json:"eastMS"`
	DownMS  float32 `json:"downMS"`
}

// PositionVelocityNed pairs a local position with the matching velocity.
type PositionVelocityNed struct {
	Position PositionNed `json:"position"`
	Velocity VelocityNed `json:"velocity"`
}

// EulerAngle is an attitude sample in degrees.
type EulerAngle struct {
	RollDeg  float32 `json:"rollDeg"`
	PitchDeg float32 `json:"pitchDeg"`
	YawDeg   float32 `json:"yawDeg"`
}

// Heading is the compass heading in degrees.
type Heading struct {
	HeadingDeg float64 `json:"headingDeg"`
}

// VelocityBodyYawspeed is a body-frame velocity setpoint.
// DownMS follows the vehicle convention: positive is down.
type VelocityBodyYawspeed struct {
	ForwardMS    float32 `json:"forwardMS"`
	RightMS      float32 `json:"rightMS"`
	DownMS       float32 `json:"downMS"`
	YawspeedDegS float32 `json:"yawspeedDegS"`
}

// PositionNedYaw is a local-frame position setpoint with a heading.
type PositionNedYaw struct {
	NorthM float32 `json:"northM"`
	EastM  float32 `json:"eastM"`
	DownM  float32 `json:"downM"`
	YawDeg float32 `json:"yawDeg"`
}

// StopVelocity is the all-zero setpoint.
var StopVelocity = VelocityBodyYawspeed{}
