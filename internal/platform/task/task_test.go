// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package task

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Submit(t *testing.T) {
	t.Run("executes_submitted_job", func(t *testing.T) {
		runner := NewRunner(4, slog.Default())

		var executed atomic.Bool
		ok := runner.Submit("test_job", func(ctx context.Context) {
			executed.Store(true)
		})
		require.True(t, ok)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, runner.Shutdown(shutdownCtx))

		assert.True(t, executed.Load())
	})

	t.Run("drops_job_when_queue_full", func(t *testing.T) {
		runner := NewRunner(1, slog.Default())

		blocker := make(chan struct{})
		// First job occupies the worker.
		runner.Submit("blocking", func(ctx context.Context) {
			<-blocker
		})
		// Second job fills the queue slot.
		runner.Submit("queued", func(ctx context.Context) {})

		// Third submission must be rejected, not block.
		ok := runner.Submit("overflow", func(ctx context.Context) {})
		assert.False(t, ok)

		close(blocker)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, runner.Shutdown(shutdownCtx))
	})

	t.Run("rejects_after_shutdown", func(t *testing.T) {
		runner := NewRunner(4, slog.Default())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, runner.Shutdown(shutdownCtx))

		ok := runner.Submit("late", func(ctx context.Context) {})
		assert.False(t, ok)
	})

	t.Run("recovers_from_panicking_job", func(t *testing.T) {
		runner := NewRunner(4, slog.Default())

		runner.Submit("panics", func(ctx context.Context) {
			panic("boom")
		})

		var executed atomic.Bool
		runner.Submit("after_panic", func(ctx context.Context) {
			executed.Store(true)
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, runner.Shutdown(shutdownCtx))

		assert.True(t, executed.Load())
	})

	t.Run("drains_queue_on_shutdown", func(t *testing.T) {
		runner := NewRunner(8, slog.Default())

		var counter atomic.Int32
		for i := 0; i < 5; i++ {
			runner.Submit("counted", func(ctx context.Context) {
				counter.Add(1)
			})
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, runner.Shutdown(shutdownCtx))

		assert.Equal(t, int32(5), counter.Load())
	})
}
