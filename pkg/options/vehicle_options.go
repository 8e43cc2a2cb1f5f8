package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*VehicleOptions)(nil)

// VehicleOptions describes how to reach the vehicle and how long to wait for it.
type VehicleOptions struct {
	// ID names the vehicle in logs and MQTT topics.
	ID string `json:"id" mapstructure:"id"`

	// UseSerial selects the serial transport instead of the network one.
	UseSerial bool   `json:"use-serial" mapstructure:"use-serial"`
	Serial    string `json:"serial" mapstructure:"serial"`
	Baud      int    `json:"baud" mapstructure:"baud"`

	// Host may be empty, which listens on all interfaces.
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`

	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	LandingTimeout time.Duration `json:"landing-timeout" mapstructure:"landing-timeout"`

	// Simulate replaces the MAVLink link with an in-memory vehicle.
	Simulate bool `json:"simulate" mapstructure:"simulate"`
}

// NewVehicleOptions returns the default vehicle options.
func NewVehicleOptions() *VehicleOptions {
	return &VehicleOptions{
		ID:             "drone-1",
		Serial:         "/dev/ttyUSB0",
		Baud:           57600,
		Port:           14540,
		ConnectTimeout: 15 * time.Second,
		LandingTimeout: 8 * time.Second,
	}
}

// Validate checks the connection target and the timeouts.
func (o *VehicleOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ID == "" {
		errs = append(errs, errors.New("--vehicle.id must not be empty"))
	}
	if o.UseSerial {
		if o.Serial == "" {
			errs = append(errs, errors.New("--vehicle.serial is required with --vehicle.use-serial"))
		}
		if o.Baud <= 0 {
			errs = append(errs, fmt.Errorf("--vehicle.baud must be positive, got %d", o.Baud))
		}
	} else if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("--vehicle.port %d is out of range", o.Port))
	}
	if o.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--vehicle.connect-timeout must be positive, got %s", o.ConnectTimeout))
	}
	if o.LandingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--vehicle.landing-timeout must be positive, got %s", o.LandingTimeout))
	}

	return errs
}

// AddFlags adds flags for the vehicle link to the specified FlagSet.
func (o *VehicleOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.ID, "vehicle.id", o.ID, "Identifier of the vehicle, used in logs and MQTT topics.")
	fs.BoolVar(&o.UseSerial, "vehicle.use-serial", o.UseSerial, "Connect over a serial device instead of UDP.")
	fs.StringVar(&o.Serial, "vehicle.serial", o.Serial, "Serial device of the autopilot.")
	fs.IntVar(&o.Baud, "vehicle.baud", o.Baud, "Baud rate of the serial device.")
	fs.StringVar(&o.Host, "vehicle.host", o.Host, "UDP host to listen on for the autopilot (empty for all interfaces).")
	fs.IntVar(&o.Port, "vehicle.port", o.Port, "UDP port of the autopilot link.")
	fs.DurationVar(&o.ConnectTimeout, "vehicle.connect-timeout", o.ConnectTimeout, "Bound on connecting, link detection and GPS fix.")
	fs.DurationVar(&o.LandingTimeout, "vehicle.landing-timeout", o.LandingTimeout, "Bound on waiting for a landing to finish. Must be shorter than --scheduler.command-timeout.")
	fs.BoolVar(&o.Simulate, "vehicle.simulate", o.Simulate, "Fly an in-memory simulated vehicle instead of a real one.")
}
