package input

import (
	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// QuitKey stops the pilot.
const QuitKey = 'z'

// Binding maps a key to a command.
type Binding struct {
	Key         rune
	Description string
	Command     command.Command
	Interrupt   bool
}

func nudge(d movement.Direction) command.Command {
	cmd, _ := command.Nudge(d)
	return cmd
}

var bindings = []Binding{
	{Key: 'k', Description: "Kill switch", Command: command.Kill{}, Interrupt: true},
	{Key: 'h', Description: "Return home", Command: command.ReturnHome{}},
	{Key: '0', Description: "Stop", Command: command.Stop()},
	{Key: 't', Description: "Take-off", Command: command.Takeoff{CheckState: true}},
	{Key: 'l', Description: "Land", Command: command.Land{}},
	{Key: 'o', Description: "Toggle offboard", Command: command.ToggleOffboard{}},
	{Key: 'w', Description: "Forward", Command: nudge(movement.Forward)},
	{Key: 's', Description: "Backward", Command: nudge(movement.Backward)},
	{Key: 'd', Description: "Right", Command: nudge(movement.Right)},
	{Key: 'a', Description: "Left", Command: nudge(movement.Left)},
	{Key: 'q', Description: "Yaw left", Command: nudge(movement.YawLeft)},
	{Key: 'e', Description: "Yaw right", Command: nudge(movement.YawRight)},
	{Key: '1', Description: "Up", Command: nudge(movement.Up)},
	{Key: '3', Description: "Down", Command: nudge(movement.Down)},
}

var byKey = func() map[rune]Binding {
	m := make(map[rune]Binding, len(bindings))
	for _, b := range bindings {
		m[b.Key] = b
	}
	return m
}()

// Bindings returns the key map in display order.
func Bindings() []Binding {
	return append([]Binding(nil), bindings...)
}

// Lookup returns the binding for key.
func Lookup(key rune) (Binding, bool) {
	b, ok := byKey[key]
	return b, ok
}

// HandleKey queues the command bound to key. It returns ErrQuit for QuitKey.
// Unbound keys are logged and ignored.
func HandleKey(q Enqueuer, key rune) error {
	log.Info("Pressed key", "key", string(key))
	if key == QuitKey {
		return ErrQuit
	}

	b, ok := Lookup(key)
	if !ok {
		log.Warn("Key is not bound to any action", "key", string(key), "code", int(key))
		return nil
	}
	q.Enqueue(b.Command, b.Interrupt)
	return nil
}
