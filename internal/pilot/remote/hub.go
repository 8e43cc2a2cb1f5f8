// Package remote accepts commands over MQTT and reports pilot status.
package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/status"
	"github.com/autopeer-io/dronecontrol/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/dronecontrol/pkg/mqtt/topic"
)

const qos = mqtt.AtLeastOnce

// ReasonOverloaded is the ack error of a request dropped before parsing.
const ReasonOverloaded = "command ingress overloaded, request dropped"

// Queue accepts commands for execution.
type Queue interface {
	Enqueue(cmd command.Command, interrupt bool) uuid.UUID
}

// Ack answers a command request.
type Ack struct {
	ID        string    `json:"id,omitempty"`
	Command   string    `json:"command"`
	Accepted  bool      `json:"accepted"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Online is the retained presence flag.
type Online struct {
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// OfflinePayload is the will message registered with the broker.
func OfflinePayload() []byte {
	return []byte(`{"online":false}`)
}

// OnlineTopic returns the presence topic of vehicleID.
func OnlineTopic(builder *mqtttopic.Builder, vehicleID string) string {
	return builder.Build(paths.Online, vehicleID)
}

type Hub struct {
	vid string

	mc       mqtt.Client
	topics   *mqtttopic.Builder
	queue    Queue
	status   status.Func
	interval time.Duration
	clock    clock.WithTicker
	logger   log.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock sets the clock driving the status reports.
func WithClock(clk clock.WithTicker) Option {
	return func(h *Hub) { h.clock = clk }
}

// New returns a hub for vehicle vid. A zero interval disables status reports.
func New(vid string, client mqtt.Client, builder *mqtttopic.Builder, queue Queue, st status.Func, interval time.Duration, opts ...Option) *Hub {
	h := &Hub{
		vid:      vid,
		mc:       client,
		topics:   builder,
		queue:    queue,
		status:   st,
		interval: interval,
		clock:    clock.RealClock{},
		logger:   log.WithName("remote"),
	}
	for _, fn := range opts {
		fn(h)
	}
	return h
}

// Run connects, subscribes to the command topic and publishes status until
// ctx ends. The hub then marks the vehicle offline and disconnects.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.mc.Start(ctx); err != nil {
		return err
	}
	defer h.stop()

	if err := h.mc.AwaitConnection(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	cmdTopic := h.topics.Build(paths.Command, h.vid)
	if err := h.mc.Subscribe(ctx, cmdTopic, qos, h.handleCommand, mqtt.WithOverflow(h.rejectOverflow)); err != nil {
		return err
	}
	h.logger.Info("Listening for remote commands", "topic", cmdTopic)

	h.publishJSON(ctx, paths.Online, true, Online{Online: true, Timestamp: time.Now().UTC()})

	if h.interval <= 0 || h.status == nil {
		<-ctx.Done()
		return nil
	}

	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			h.publishJSON(ctx, paths.Status, false, h.status(ctx))
		}
	}
}

func (h *Hub) handleCommand(ctx context.Context, msg mqtt.Message) {
	// A retained command would fly again on every reconnect.
	if msg.Retained {
		h.logger.Warn("Ignoring retained command", "topic", msg.Topic)
		return
	}

	var req command.Request
	ack := Ack{Timestamp: time.Now().UTC()}

	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		ack.Error = "malformed request: " + err.Error()
		h.logger.Warn("Malformed command request", "topic", msg.Topic, "error", err)
		h.publishJSON(ctx, paths.CommandAck, false, ack)
		return
	}
	ack.Command = req.Command

	cmd, err := req.Build()
	if err != nil {
		ack.Error = err.Error()
		h.logger.Warn("Rejected remote command", "command", req.Command, "error", err)
		h.publishJSON(ctx, paths.CommandAck, false, ack)
		return
	}

	if id := h.queue.Enqueue(cmd, req.Interrupt); id != uuid.Nil {
		ack.ID = id.String()
	}
	ack.Accepted = true
	h.publishJSON(ctx, paths.CommandAck, false, ack)
}

// rejectOverflow answers a command the MQTT client dropped because the
// ingress fell behind, so the sender does not wait for an ack forever.
func (h *Hub) rejectOverflow(ctx context.Context, msg mqtt.Message) {
	if msg.Retained {
		return
	}
	var req command.Request
	_ = json.Unmarshal(msg.Payload, &req)
	h.logger.Warn("Command ingress overloaded, request dropped", "command", req.Command)
	h.publishJSON(ctx, paths.CommandAck, false, Ack{
		Command:   req.Command,
		Error:     ReasonOverloaded,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) publishJSON(ctx context.Context, segment string, retain bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(err, "Failed to encode message", "segment", segment)
		return
	}
	t := h.topics.Build(segment, h.vid)
	if err := h.mc.Publish(ctx, t, qos, retain, payload); err != nil {
		h.logger.Warn("Failed to publish message", "topic", t, "error", err)
	}
}

func (h *Hub) stop() {
	h.logger.Info("Disconnecting MQTT client...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if h.mc.IsConnected() {
		h.publishJSON(ctx, paths.Online, true, Online{Online: false, Timestamp: time.Now().UTC()})
	}
	h.mc.Disconnect(ctx)
}
