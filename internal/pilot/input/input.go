// Package input turns keyboard and gesture events into queued commands.
package input

import (
	"errors"

	"github.com/google/uuid"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
)

// ErrQuit is returned when the operator asks to stop the pilot.
var ErrQuit = errors.New("quit requested")

// Enqueuer accepts commands for execution.
type Enqueuer interface {
	Enqueue(cmd command.Command, interrupt bool) uuid.UUID
}
