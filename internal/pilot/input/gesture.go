package input

import (
	"fmt"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// Gesture is a hand pose reported by a recognizer.
type Gesture string

const (
	NoHand     Gesture = "no_hand"
	Stop       Gesture = "stop"
	Fist       Gesture = "fist"
	PointUp    Gesture = "point_up"
	PointRight Gesture = "point_right"
	PointLeft  Gesture = "point_left"
	ThumbRight Gesture = "thumb_right"
	ThumbLeft  Gesture = "thumb_left"
)

type gestureAction struct {
	cmd       command.Command
	interrupt bool
}

var gestures = map[Gesture]gestureAction{
	// Losing sight of the hand aborts whatever is queued.
	NoHand:     {command.ReturnHome{}, true},
	Stop:       {command.Land{}, false},
	Fist:       {command.Takeoff{CheckState: true}, false},
	PointUp:    {command.StartOffboard{}, false},
	PointRight: {command.SetVelocity{Velocity: movement.Velocity{Right: 1}}, false},
	PointLeft:  {command.SetVelocity{Velocity: movement.Velocity{Right: -1}}, false},
	ThumbRight: {command.SetVelocity{Velocity: movement.Velocity{Forward: 1}}, false},
	ThumbLeft:  {command.SetVelocity{Velocity: movement.Velocity{Forward: -1}}, false},
}

// ParseGesture validates a gesture name.
func ParseGesture(name string) (Gesture, error) {
	g := Gesture(name)
	if _, ok := gestures[g]; !ok {
		return "", fmt.Errorf("unknown gesture %q", name)
	}
	return g, nil
}

// MapGesture returns the command for g and whether it interrupts the queue.
func MapGesture(g Gesture) (command.Command, bool, bool) {
	a, ok := gestures[g]
	return a.cmd, a.interrupt, ok
}

// HandleGesture queues the command mapped to g. Unknown gestures are ignored.
func HandleGesture(q Enqueuer, g Gesture) bool {
	cmd, interrupt, ok := MapGesture(g)
	if !ok {
		log.Debug("Gesture is not bound to any action", "gesture", g)
		return false
	}
	log.Info("Gesture detected", "gesture", g, "command", cmd.Name())
	q.Enqueue(cmd, interrupt)
	return true
}
