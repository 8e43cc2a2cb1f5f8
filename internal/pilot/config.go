package pilot

import (
	"fmt"
	"time"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/connection"
	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/flight"
	"github.com/autopeer-io/dronecontrol/internal/pilot/input"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
	"github.com/autopeer-io/dronecontrol/internal/pilot/recorder"
	"github.com/autopeer-io/dronecontrol/internal/pilot/remote"
	"github.com/autopeer-io/dronecontrol/internal/pilot/scheduler"
	"github.com/autopeer-io/dronecontrol/internal/pilot/server"
	"github.com/autopeer-io/dronecontrol/internal/pilot/status"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/mavlink"
	"github.com/autopeer-io/dronecontrol/internal/pilot/vehicle/sim"
	"github.com/autopeer-io/dronecontrol/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/dronecontrol/pkg/mqtt/topic"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

// simulatedDelay paces the in-memory vehicle so that flights look realistic.
const simulatedDelay = 500 * time.Millisecond

type Config struct {
	VehicleOptions   *options.VehicleOptions
	SchedulerOptions *options.SchedulerOptions
	MqttOptions      *options.MqttOptions
	HttpOptions      *options.HttpOptions
	GrpcOptions      *options.GrpcOptions
	RecordOptions    *options.RecordOptions

	// Keyboard reads commands from the controlling terminal.
	Keyboard bool
}

func (cfg *Config) NewPilot() (*Pilot, error) {
	vid := cfg.VehicleOptions.ID
	if vid == "" {
		return nil, fmt.Errorf("FATAL: vehicle id is empty")
	}

	return cfg.build(vid, cfg.newVehicle())
}

func (cfg *Config) build(vid string, vehicle core.Vehicle) (*Pilot, error) {
	session := connection.NewManager(vehicle)
	fc := flight.NewController(vehicle, cfg.VehicleOptions.LandingTimeout)
	mover := movement.NewMover(vehicle, nil)

	queue := scheduler.NewQueue()
	sched := scheduler.New(queue, command.NewDispatcher(session, fc, mover), cfg.SchedulerOptions)
	reporter := status.NewReporter(vid, session, sched, fc)

	p := &Pilot{
		vehicleID:      vid,
		target:         connection.TargetFromOptions(cfg.VehicleOptions),
		connectTimeout: cfg.VehicleOptions.ConnectTimeout,
		vehicle:        vehicle,
		session:        session,
		scheduler:      sched,
		servers: server.NewManager(cfg.HttpOptions, cfg.GrpcOptions, server.Backend{
			Queue:   queue,
			Session: session,
			Status:  reporter.Status,
		}),
	}

	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		client, builder, err := cfg.initMqttClientAndTopicBuilder(vid)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		p.hub = remote.New(vid, client, builder, queue, reporter.Status, cfg.MqttOptions.StatusInterval)
	}

	if cfg.RecordOptions != nil && cfg.RecordOptions.Enabled {
		rec, err := recorder.Open(cfg.RecordOptions, vehicle, session)
		if err != nil {
			return nil, err
		}
		p.recorder = rec
	}

	if cfg.Keyboard {
		p.terminal = input.NewTerminal(queue)
	}

	return p, nil
}

func (cfg *Config) newVehicle() core.Vehicle {
	if cfg.VehicleOptions.Simulate {
		return sim.New(sim.WithDelay(simulatedDelay))
	}
	return mavlink.New()
}

func (cfg *Config) initMqttClientAndTopicBuilder(vid string) (mqtt.Client, *mqtttopic.Builder, error) {
	topicBuilder := mqtttopic.NewBuilder(cfg.MqttOptions.TopicRoot)

	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("dronecontrol-%s", vid)
	}

	mqttConfig.WillTopic = remote.OnlineTopic(topicBuilder, vid)
	mqttConfig.WillPayload = remote.OfflinePayload()
	mqttConfig.WillQoS = 1
	mqttConfig.WillRetain = true

	mqttClient, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		return nil, nil, err
	}

	return mqttClient, topicBuilder, nil
}
