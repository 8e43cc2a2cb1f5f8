package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RecordOptions)(nil)

// RecordOptions configures the periodic telemetry recorder.
type RecordOptions struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Path     string        `json:"path" mapstructure:"path"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

func NewRecordOptions() *RecordOptions {
	return &RecordOptions{
		Path:     "telemetry.log",
		Interval: 100 * time.Millisecond,
	}
}

func (o *RecordOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Path == "" {
		errs = append(errs, errors.New("--record.path must not be empty"))
	}
	if o.Interval <= 0 {
		errs = append(errs, fmt.Errorf("--record.interval must be positive, got %s", o.Interval))
	}
	return errs
}

func (o *RecordOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "record.enabled", o.Enabled, "Record periodic telemetry snapshots to a file.")
	fs.StringVar(&o.Path, "record.path", o.Path, "File the telemetry snapshots are appended to.")
	fs.DurationVar(&o.Interval, "record.interval", o.Interval, "Interval between telemetry snapshots.")
}
