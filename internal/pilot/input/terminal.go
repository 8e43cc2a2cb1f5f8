package input

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-tty"

	"github.com/autopeer-io/dronecontrol/pkg/log"
)

type keyReader interface {
	ReadKey() (rune, error)
}

// ttyKeys reads single key presses from a raw-mode terminal.
type ttyKeys struct {
	term *tty.TTY
}

func (k ttyKeys) ReadKey() (rune, error) {
	return k.term.ReadRune()
}

func openTTY() (keyReader, func() error, error) {
	term, err := tty.Open()
	if err != nil {
		return nil, nil, err
	}
	return ttyKeys{term: term}, term.Close, nil
}

// Terminal reads raw key presses from the controlling terminal.
type Terminal struct {
	queue  Enqueuer
	logger log.Logger
	open   func() (keyReader, func() error, error)
}

// NewTerminal returns a keyboard producer feeding q.
func NewTerminal(q Enqueuer) *Terminal {
	return &Terminal{queue: q, logger: log.WithName("keyboard"), open: openTTY}
}

// Run handles key presses until ctx ends or the quit key is pressed, in
// which case it returns ErrQuit. Without a terminal, as under a service
// manager, keyboard control is skipped and Run returns nil.
func (t *Terminal) Run(ctx context.Context) error {
	keys, closeFn, err := t.open()
	if err != nil {
		t.logger.Warn("No terminal, keyboard control disabled", "error", err)
		return nil
	}
	defer func() { _ = closeFn() }()

	t.logger.Info("Keyboard control ready", "quit", string(QuitKey))
	return t.consume(ctx, keys)
}

func (t *Terminal) consume(ctx context.Context, r keyReader) error {
	keys := make(chan rune)
	errc := make(chan error, 1)
	go func() {
		for {
			key, err := r.ReadKey()
			if err != nil {
				errc <- err
				return
			}
			select {
			case keys <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return fmt.Errorf("terminal read failed: %w", err)
		case key := <-keys:
			if err := HandleKey(t.queue, key); errors.Is(err, ErrQuit) {
				t.logger.Warn("Quit requested from keyboard")
				return err
			}
		}
	}
}
