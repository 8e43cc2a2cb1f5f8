// Package command defines the closed set of commands the pilot executes.
//
// Every command is a small immutable value. Producers build them, the
// scheduler queues them and Dispatcher interprets them.
package command

import (
	"fmt"
	"time"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
)

// Capability is what the vehicle must offer before a command can act.
type Capability int

const (
	// RequiresSession needs a ready vehicle session.
	RequiresSession Capability = iota
	// RequiresOffboard additionally needs offboard mode; without it the command is a no-op.
	RequiresOffboard
)

func (c Capability) String() string {
	if c == RequiresOffboard {
		return "offboard"
	}
	return "session"
}

// Command is implemented only by the types of this package.
type Command interface {
	// Name identifies the command in logs, metrics and the wire format.
	Name() string
	// Requires reports the capability the command needs.
	Requires() Capability

	sealed()
}

// Command names.
const (
	NameTakeoff           = "takeoff"
	NameLand              = "land"
	NameReturnHome        = "return_home"
	NameHold              = "hold"
	NameKill              = "kill"
	NameStartOffboard     = "start_offboard"
	NameStopOffboard      = "stop_offboard"
	NameToggleOffboard    = "toggle_offboard"
	NameToggleTakeoffLand = "toggle_takeoff_land"
	NameSetVelocity       = "set_velocity"
	NameMoveBodyVelocity  = "move_body_velocity"
	NameSetPositionNedYaw = "set_position_ned_yaw"
)

type (
	Takeoff struct {
		// CheckState makes takeoff a no-op unless the vehicle is on the ground.
		CheckState bool
	}
	Land              struct{}
	ReturnHome        struct{}
	Hold              struct{}
	Kill              struct{}
	StartOffboard     struct{}
	StopOffboard      struct{}
	ToggleOffboard    struct{}
	ToggleTakeoffLand struct{}

	SetVelocity struct {
		Velocity movement.Velocity
	}
	MoveBodyVelocity struct {
		Velocity movement.Velocity
		Duration time.Duration
	}
	SetPositionNedYaw struct {
		Position core.PositionNedYaw
	}
	// Move is one of the fixed directional nudges.
	Move struct {
		Direction movement.Direction
	}
)

func (Takeoff) Name() string           { return NameTakeoff }
func (Land) Name() string              { return NameLand }
func (ReturnHome) Name() string        { return NameReturnHome }
func (Hold) Name() string              { return NameHold }
func (Kill) Name() string              { return NameKill }
func (StartOffboard) Name() string     { return NameStartOffboard }
func (StopOffboard) Name() string      { return NameStopOffboard }
func (ToggleOffboard) Name() string    { return NameToggleOffboard }
func (ToggleTakeoffLand) Name() string { return NameToggleTakeoffLand }
func (SetVelocity) Name() string       { return NameSetVelocity }
func (MoveBodyVelocity) Name() string  { return NameMoveBodyVelocity }
func (SetPositionNedYaw) Name() string { return NameSetPositionNedYaw }
func (m Move) Name() string            { return "move_" + string(m.Direction) }

func (Takeoff) Requires() Capability           { return RequiresSession }
func (Land) Requires() Capability              { return RequiresSession }
func (ReturnHome) Requires() Capability        { return RequiresSession }
func (Hold) Requires() Capability              { return RequiresSession }
func (Kill) Requires() Capability              { return RequiresSession }
func (StartOffboard) Requires() Capability     { return RequiresSession }
func (StopOffboard) Requires() Capability      { return RequiresSession }
func (ToggleOffboard) Requires() Capability    { return RequiresSession }
func (ToggleTakeoffLand) Requires() Capability { return RequiresSession }
func (SetVelocity) Requires() Capability       { return RequiresOffboard }
func (MoveBodyVelocity) Requires() Capability  { return RequiresOffboard }
func (SetPositionNedYaw) Requires() Capability { return RequiresOffboard }
func (Move) Requires() Capability              { return RequiresOffboard }

func (Takeoff) sealed()           {}
func (Land) sealed()              {}
func (ReturnHome) sealed()        {}
func (Hold) sealed()              {}
func (Kill) sealed()              {}
func (StartOffboard) sealed()     {}
func (StopOffboard) sealed()      {}
func (ToggleOffboard) sealed()    {}
func (ToggleTakeoffLand) sealed() {}
func (SetVelocity) sealed()       {}
func (MoveBodyVelocity) sealed()  {}
func (SetPositionNedYaw) sealed() {}
func (Move) sealed()              {}

// Stop is the canonical stop command: a zero velocity setpoint.
func Stop() Command {
	return SetVelocity{Velocity: movement.Stop}
}

// Nudge returns the directional command for d.
func Nudge(d movement.Direction) (Command, error) {
	if _, _, ok := movement.Nudge(d); !ok {
		return nil, fmt.Errorf("unknown direction %q", d)
	}
	return Move{Direction: d}, nil
}
