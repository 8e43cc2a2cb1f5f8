package movement

import (
	"context"
	"fmt"
	"time"
)

// Direction is a fixed one-second nudge.
type Direction string

const (
	YawRight Direction = "yaw_right"
	YawLeft  Direction = "yaw_left"
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Right    Direction = "right"
	Left     Direction = "left"
	Up       Direction = "up"
	Down     Direction = "down"
)

const nudgeTime = time.Second

var nudges = map[Direction]Velocity{
	YawRight: {Yaw: 2},
	YawLeft:  {Yaw: -2},
	Forward:  {Forward: 1},
	Backward: {Forward: -1},
	Right:    {Right: 1},
	Left:     {Right: -1},
	Up:       {Up: 0.5},
	Down:     {Up: -0.5},
}

// Nudge returns the velocity and duration of d.
func Nudge(d Direction) (Velocity, time.Duration, bool) {
	v, ok := nudges[d]
	return v, nudgeTime, ok
}

// Move performs the nudge named by d.
func (m *Mover) Move(ctx context.Context, d Direction) error {
	v, dur, ok := Nudge(d)
	if !ok {
		return fmt.Errorf("unknown direction %q", d)
	}
	return m.MoveBodyVelocity(ctx, v, dur)
}
