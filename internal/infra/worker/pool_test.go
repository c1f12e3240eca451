//go:build !integration

package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestPool(t *testing.T) {
	t.Run("should run every queued task before Stop returns", func(t *testing.T) {
		p := NewPool(2, 16, newTestLogger())
		var n int32
		for i := 0; i < 10; i++ {
			require.NoError(t, p.Submit(func(context.Context) error {
				atomic.AddInt32(&n, 1)
				return nil
			}))
		}
		p.Start(context.Background())
		p.Stop()

		assert.Equal(t, int32(10), atomic.LoadInt32(&n))
	})

	t.Run("should drop tasks when the queue is full", func(t *testing.T) {
		p := NewPool(1, 1, newTestLogger())
		noop := func(context.Context) error { return nil }

		require.NoError(t, p.Submit(noop))
		assert.ErrorIs(t, p.Submit(noop), ErrQueueFull)
	})

	t.Run("should survive failing and panicking tasks", func(t *testing.T) {
		p := NewPool(1, 4, newTestLogger())
		var ran int32
		require.NoError(t, p.Submit(func(context.Context) error { return errors.New("boom") }))
		require.NoError(t, p.Submit(func(context.Context) error { panic("bad task") }))
		require.NoError(t, p.Submit(func(context.Context) error {
			atomic.StoreInt32(&ran, 1)
			return nil
		}))
		p.Start(context.Background())
		p.Stop()

		assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	})

	t.Run("should reject nil and late tasks", func(t *testing.T) {
		p := NewPool(1, 1, newTestLogger())
		assert.ErrorIs(t, p.Submit(nil), ErrNilTask)
		p.Start(context.Background())
		p.Stop()
		p.Stop()
		assert.ErrorIs(t, p.Submit(func(context.Context) error { return nil }), ErrPoolClosed)
	})
}
