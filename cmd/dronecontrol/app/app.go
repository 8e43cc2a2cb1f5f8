package app

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/dronecontrol/cmd/dronecontrol/app/options"
	"github.com/autopeer-io/dronecontrol/internal/pilot"
	"github.com/autopeer-io/dronecontrol/pkg/app"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

const (
	commandName = "dronecontrol"
	commandDesc = `dronecontrol connects to a PX4 autopilot over MAVLink and flies it from a
queue of high-level commands. Commands come from the keyboard, the HTTP API
or an MQTT broker and are executed one at a time, each under a timeout.`
)

func NewApp() *app.App {
	opts := options.NewPilotOptions()
	current := &atomic.Pointer[pilot.Pilot]{}

	application := app.NewApp(
		commandName,
		"Fly a drone from a queue of high-level commands",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithConfigWatch(reload(current)),
		app.WithSubCommands(newKeysCommand()),
		app.WithRunFunc(run(opts, current)),
	)
	return application
}

func run(opts *options.PilotOptions, current *atomic.Pointer[pilot.Pilot]) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer func() { _ = log.Sync() }()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		p, err := cfg.NewPilot()
		if err != nil {
			return fmt.Errorf("failed to create pilot: %w", err)
		}
		current.Store(p)

		return p.Run(ctx)
	}
}

// reload applies the settings that may change while flying.
func reload(current *atomic.Pointer[pilot.Pilot]) app.WatchFunc {
	return func(v *viper.Viper, _ fsnotify.Event) {
		p := current.Load()
		if p == nil {
			return
		}
		timeout := v.GetDuration("scheduler.command-timeout")
		if timeout <= 0 {
			return
		}
		if err := options.ValidateLandingTimeout(v.GetDuration("vehicle.landing-timeout"), timeout); err != nil {
			log.Warn("Ignoring reloaded command timeout", "error", err)
			return
		}
		p.SetCommandTimeout(timeout)
	}
}
