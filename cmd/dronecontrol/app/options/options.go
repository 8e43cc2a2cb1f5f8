package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/dronecontrol/internal/pilot"
	"github.com/autopeer-io/dronecontrol/pkg/app"
	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

type PilotOptions struct {
	VehicleOptions   *options.VehicleOptions   `json:"vehicle" mapstructure:"vehicle"`
	SchedulerOptions *options.SchedulerOptions `json:"scheduler" mapstructure:"scheduler"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	GrpcOptions      *options.GrpcOptions      `json:"grpc" mapstructure:"grpc"`
	RecordOptions    *options.RecordOptions    `json:"record" mapstructure:"record"`
	Log              *log.Options              `json:"log" mapstructure:"log"`

	// Keyboard reads commands from the controlling terminal.
	Keyboard bool `json:"keyboard" mapstructure:"keyboard"`
}

var _ app.NamedFlagSetOptions = (*PilotOptions)(nil)

func NewPilotOptions() *PilotOptions {
	o := &PilotOptions{
		VehicleOptions:   options.NewVehicleOptions(),
		SchedulerOptions: options.NewSchedulerOptions(),
		MqttOptions:      options.NewMqttOptions(),
		HttpOptions:      options.NewHttpOptions(),
		GrpcOptions:      options.NewGrpcOptions(),
		RecordOptions:    options.NewRecordOptions(),
		Log:              log.NewOptions(),
		Keyboard:         true,
	}

	return o
}

func (o *PilotOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.VehicleOptions.AddFlags(fss.FlagSet("vehicle"))
	o.SchedulerOptions.AddFlags(fss.FlagSet("scheduler"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.RecordOptions.AddFlags(fss.FlagSet("record"))
	o.Log.AddFlags(fss.FlagSet("log"))

	fs := fss.FlagSet("input")
	fs.BoolVar(&o.Keyboard, "keyboard", o.Keyboard, "Read single-key commands from the controlling terminal.")
	return fss
}

func (o *PilotOptions) Complete() error {
	return nil
}

func (o *PilotOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.VehicleOptions.Validate()...)
	errs = append(errs, o.SchedulerOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.RecordOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	if err := ValidateLandingTimeout(o.VehicleOptions.LandingTimeout, o.SchedulerOptions.CommandTimeout); err != nil {
		errs = append(errs, err)
	}
	return utilerrors.NewAggregate(errs)
}

// ValidateLandingTimeout checks that a land command can report its own
// timeout before the scheduler abandons it.
func ValidateLandingTimeout(landing, command time.Duration) error {
	if landing <= 0 || command <= 0 || landing < command {
		return nil
	}
	return fmt.Errorf("--vehicle.landing-timeout (%s) must be shorter than --scheduler.command-timeout (%s)", landing, command)
}

func (o *PilotOptions) Config() (*pilot.Config, error) {
	return &pilot.Config{
		VehicleOptions:   o.VehicleOptions,
		SchedulerOptions: o.SchedulerOptions,
		MqttOptions:      o.MqttOptions,
		HttpOptions:      o.HttpOptions,
		GrpcOptions:      o.GrpcOptions,
		RecordOptions:    o.RecordOptions,
		Keyboard:         o.Keyboard,
	}, nil
}
