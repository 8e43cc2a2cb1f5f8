package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// WrapEvent adapts fn into a callback that records its error on the event.
// Event returns that error once the transition completes.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Guard adapts fn into a before_ callback: a non-nil error cancels the
// transition and Event returns fsm.CanceledError carrying it.
func Guard(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Cancel(err)
		}
	}
}
