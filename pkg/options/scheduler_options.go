package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SchedulerOptions)(nil)

// SchedulerOptions bounds the command loop.
type SchedulerOptions struct {
	// CommandTimeout is the time a single command may run before it is abandoned.
	CommandTimeout time.Duration `json:"command-timeout" mapstructure:"command-timeout"`

	// IdlePoll is how long the loop sleeps when the queue is empty.
	IdlePoll time.Duration `json:"idle-poll" mapstructure:"idle-poll"`
}

// NewSchedulerOptions returns the default scheduler options.
func NewSchedulerOptions() *SchedulerOptions {
	return &SchedulerOptions{
		CommandTimeout: 10 * time.Second,
		IdlePoll:       50 * time.Millisecond,
	}
}

func (o *SchedulerOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.CommandTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--scheduler.command-timeout must be positive, got %s", o.CommandTimeout))
	}
	if o.IdlePoll <= 0 {
		errs = append(errs, fmt.Errorf("--scheduler.idle-poll must be positive, got %s", o.IdlePoll))
	}
	return errs
}

func (o *SchedulerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.CommandTimeout, "scheduler.command-timeout", o.CommandTimeout, "Time a queued command may run before it is abandoned.")
	fs.DurationVar(&o.IdlePoll, "scheduler.idle-poll", o.IdlePoll, "Sleep between queue checks while idle.")
}
