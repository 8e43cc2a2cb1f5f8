package mavlink

import (
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
)

// PX4 custom mode layout: main mode in bits 16-23, sub mode in bits 24-31.
const (
	px4Manual     = 1
	px4Altctl     = 2
	px4Posctl     = 3
	px4Auto       = 4
	px4Acro       = 5
	px4Offboard   = 6
	px4Stabilized = 7
)

// Sub modes of px4Auto.
const (
	px4AutoReady   = 1
	px4AutoTakeoff = 2
	px4AutoLoiter  = 3
	px4AutoMission = 4
	px4AutoRTL     = 5
	px4AutoLand    = 6
)

func decodeMode(custom uint32) core.FlightMode {
	mainMode := uint8(custom >> 16)
	subMode := uint8(custom >> 24)

	switch mainMode {
	case px4Manual:
		return core.FlightModeManual
	case px4Altctl:
		return core.FlightModeAltctl
	case px4Posctl:
		return core.FlightModePosctl
	case px4Acro:
		return core.FlightModeAcro
	case px4Offboard:
		return core.FlightModeOffboard
	case px4Stabilized:
		return core.FlightModeStabilized
	case px4Auto:
		switch subMode {
		case px4AutoReady:
			return core.FlightModeReady
		case px4AutoTakeoff:
			return core.FlightModeTakeoff
		case px4AutoLoiter:
			return core.FlightModeHold
		case px4AutoMission:
			return core.FlightModeMission
		case px4AutoRTL:
			return core.FlightModeReturnToLaunch
		case px4AutoLand:
			return core.FlightModeLand
		}
	}
	return core.FlightModeUnknown
}

func landedState(s common.MAV_LANDED_STATE) core.LandedState {
	switch s {
	case common.MAV_LANDED_STATE_ON_GROUND:
		return core.LandedStateOnGround
	case common.MAV_LANDED_STATE_IN_AIR:
		return core.LandedStateInAir
	case common.MAV_LANDED_STATE_TAKEOFF:
		return core.LandedStateTakingOff
	case common.MAV_LANDED_STATE_LANDING:
		return core.LandedStateLanding
	default:
		return core.LandedStateUnknown
	}
}

var resultNames = map[common.MAV_RESULT]string{
	common.MAV_RESULT_ACCEPTED:             "ACCEPTED",
	common.MAV_RESULT_TEMPORARILY_REJECTED: "TEMPORARILY_REJECTED",
	common.MAV_RESULT_DENIED:               "DENIED",
	common.MAV_RESULT_UNSUPPORTED:          "UNSUPPORTED",
	common.MAV_RESULT_FAILED:               "FAILED",
	common.MAV_RESULT_IN_PROGRESS:          "IN_PROGRESS",
	common.MAV_RESULT_CANCELLED:            "CANCELLED",
}

func resultName(r common.MAV_RESULT) string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}
