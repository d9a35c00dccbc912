package service

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrAttemptsExhausted = errors.New("attempts exhausted")

// Attempt is the outcome of a single draw. Cleanup runs only when the
// attempt is accepted, and all of it settles before the value is returned.
type Attempt[T any] struct {
	Value   T
	Accept  bool
	Cleanup []func(ctx context.Context) error
}

// RetryWithCleanup calls draw up to max times until an attempt is accepted.
// Cleanup functions of the accepted attempt run concurrently; their errors
// are logged and never fail the call. A draw error aborts immediately.
func RetryWithCleanup[T any](ctx context.Context, max int, draw func(ctx context.Context, n int) (Attempt[T], error)) (T, error) {
	var zero T
	for n := 1; n <= max; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		a, err := draw(ctx, n)
		if err != nil {
			return zero, err
		}
		if !a.Accept {
			continue
		}

		settle(ctx, a.Cleanup)
		return a.Value, nil
	}
	return zero, ErrAttemptsExhausted
}

func settle(ctx context.Context, fns []func(ctx context.Context) error) {
	var wg sync.WaitGroup
	for _, fn := range fns {
		wg.Add(1)
		go func(fn func(ctx context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Warnf("[RetryWithCleanup] cleanup failed: %s", err)
			}
		}(fn)
	}
	wg.Wait()
}
