package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionTimeout is the only error surfaced by Connect; startup cannot continue.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrActionRejected is matched by every ActionError.
	ErrActionRejected = errors.New("action rejected")

	// ErrCommandTimeout marks a queued command that was abandoned.
	ErrCommandTimeout = errors.New("command timeout")

	// ErrLandingTimeout marks a landing that did not finish in time.
	ErrLandingTimeout = errors.New("landing timeout")

	// ErrSessionClosed is returned by every vehicle call after Close.
	ErrSessionClosed = errors.New("vehicle session closed")

	// ErrNotConnected is returned when a call needs a link that is not up yet.
	ErrNotConnected = errors.New("vehicle not connected")
)

// ActionError reports that the vehicle refused an action.
type ActionError struct {
	// Action is the rejected action, e.g. "arm" or "start_offboard".
	Action string
	// Result is the vehicle's reason.
	Result string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Action, e.Result)
}

func (e *ActionError) Unwrap() error {
	return ErrActionRejected
}

// Reject builds an ActionError.
func Reject(action, result string) error {
	return &ActionError{Action: action, Result: result}
}
