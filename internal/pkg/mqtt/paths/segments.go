package paths

// Topic segments of the pilot's remote protocol.
// Every topic has the form {root}/{segment}/{vehicleID}.

// Downstream: operator -> pilot
const (
	// Command carries a command request.
	// Payload: { "command": "takeoff", "params": {...}, "interrupt": false }
	// An empty command with interrupt set clears the queue.
	Command = "command"
)

// Upstream: pilot -> operator
const (
	// CommandAck reports whether a request was queued.
	// Payload: { "id": "...", "command": "takeoff", "accepted": true, "error": "" }
	CommandAck = "command/ack"

	// Status is the periodic pilot status report.
	// Payload: { "ready": true, "current": "takeoff", "queueDepth": 2, "phase": "airborne", ... }
	Status = "status"

	// Online is the retained online flag. The broker publishes the will
	// { "online": false } when the pilot drops off.
	Online = "online"
)
