package telemetry

import (
	"context"
	"sync"
)

// Stream is a subscribable sequence of telemetry samples.
//
// The returned channel yields the most recent sample first and every later
// one, conflated when the consumer falls behind. It is closed when ctx ends
// or the producer stops.
type Stream[T any] interface {
	Subscribe(ctx context.Context) <-chan T
}

var _ Stream[int] = (*Broadcaster[int])(nil)

type subscriber[T any] struct {
	ch   chan T
	stop func() bool
}

// Broadcaster fans the latest value of a telemetry stream out to any number
// of subscribers. The zero value is not usable; use NewBroadcaster.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	value  T
	has    bool
	closed bool
	subs   map[*subscriber[T]]struct{}
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[*subscriber[T]]struct{})}
}

// NewBroadcasterWith returns a broadcaster that already holds v.
func NewBroadcasterWith[T any](v T) *Broadcaster[T] {
	b := NewBroadcaster[T]()
	b.value, b.has = v, true
	return b
}

// Subscribe implements Stream.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	s := &subscriber[T]{ch: make(chan T, 1)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.has {
		s.ch <- b.value
	}
	if b.closed {
		close(s.ch)
		return s.ch
	}

	b.subs[s] = struct{}{}
	s.stop = context.AfterFunc(ctx, func() { b.unsubscribe(s) })
	return s.ch
}

// Publish records v as the latest value and hands it to every subscriber.
// Publishing on a closed broadcaster is a no-op.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.value, b.has = v, true

	for s := range b.subs {
		// Drop the stale sample a slow subscriber has not read yet.
		select {
		case <-s.ch:
		default:
		}
		s.ch <- v
	}
}

// Latest returns the most recent value, if any.
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.has
}

// Close ends every subscription. It is safe to call more than once.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.stop()
		close(s.ch)
		delete(b.subs, s)
	}
}

func (b *Broadcaster[T]) unsubscribe(s *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
}
