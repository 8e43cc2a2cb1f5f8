package server

import (
	"github.com/google/uuid"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/status"
)

// Queue is the part of the command queue the servers use.
type Queue interface {
	Enqueue(cmd command.Command, interrupt bool) uuid.UUID
	Clear() int
}

// Session reports vehicle readiness.
type Session interface {
	IsReady() bool
}

// Backend is what the servers expose.
type Backend struct {
	Queue   Queue
	Session Session
	Status  status.Func
}
