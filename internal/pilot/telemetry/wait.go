package telemetry

import (
	"context"
	"errors"
)

// ErrStreamClosed is returned by First when a stream ends before producing a sample.
var ErrStreamClosed = errors.New("telemetry stream closed")

// Predicate reports whether a sample is the one being waited for.
type Predicate[T any] func(T) bool

// First returns the first sample of s and stops listening.
func First[T any](ctx context.Context, s Stream[T]) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var zero T
	select {
	case v, ok := <-s.Subscribe(ctx):
		if !ok {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			return zero, ErrStreamClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// WaitUntil consumes s until a sample satisfies pred and returns that sample.
//
// A stream that ends without a match leaves the caller suspended until ctx is
// done, so callers must always bound ctx.
func WaitUntil[T any](ctx context.Context, s Stream[T], pred Predicate[T]) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var zero T
	ch := s.Subscribe(ctx)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				<-ctx.Done()
				return zero, ctx.Err()
			}
			if pred(v) {
				return v, nil
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Equal matches samples equal to want.
func Equal[T comparable](want T) Predicate[T] {
	return func(v T) bool { return v == want }
}

// Field matches samples whose attribute, read by get, equals want.
func Field[T any, F comparable](get func(T) F, want F) Predicate[T] {
	return func(v T) bool { return get(v) == want }
}

// All matches samples that satisfy every pred.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	return func(v T) bool {
		for _, p := range preds {
			if !p(v) {
				return false
			}
		}
		return true
	}
}
