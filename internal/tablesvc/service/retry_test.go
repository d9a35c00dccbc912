package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithCleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts and settles cleanup first", func(t *testing.T) {
		var cleaned int32
		draws := 0
		v, err := RetryWithCleanup(ctx, 5, func(ctx context.Context, n int) (Attempt[string], error) {
			draws++
			if n < 3 {
				return Attempt[string]{}, nil
			}
			cleanup := func(ctx context.Context) error {
				atomic.AddInt32(&cleaned, 1)
				return nil
			}
			failing := func(ctx context.Context) error {
				atomic.AddInt32(&cleaned, 1)
				return errors.New("store unavailable")
			}
			return Attempt[string]{Value: "WXYZ", Accept: true, Cleanup: []func(context.Context) error{cleanup, cleanup, failing}}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "WXYZ", v)
		assert.Equal(t, 3, draws)
		assert.Equal(t, int32(3), atomic.LoadInt32(&cleaned))
	})

	t.Run("exhausts", func(t *testing.T) {
		draws := 0
		_, err := RetryWithCleanup(ctx, 4, func(ctx context.Context, n int) (Attempt[int], error) {
			draws++
			return Attempt[int]{}, nil
		})
		assert.ErrorIs(t, err, ErrAttemptsExhausted)
		assert.Equal(t, 4, draws)
	})

	t.Run("draw error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		draws := 0
		_, err := RetryWithCleanup(ctx, 4, func(ctx context.Context, n int) (Attempt[int], error) {
			draws++
			return Attempt[int]{}, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, draws)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := RetryWithCleanup(cctx, 4, func(ctx context.Context, n int) (Attempt[int], error) {
			t.Fatal("draw must not run")
			return Attempt[int]{}, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cleanup skipped on rejected attempts", func(t *testing.T) {
		var cleaned int32
		_, err := RetryWithCleanup(ctx, 2, func(ctx context.Context, n int) (Attempt[int], error) {
			return Attempt[int]{Accept: false, Cleanup: []func(context.Context) error{
				func(ctx context.Context) error { atomic.AddInt32(&cleaned, 1); return nil },
			}}, nil
		})
		assert.ErrorIs(t, err, ErrAttemptsExhausted)
		assert.Zero(t, atomic.LoadInt32(&cleaned))
	})
}
