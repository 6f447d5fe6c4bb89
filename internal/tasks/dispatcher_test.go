package tasks

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_RunsTasks(t *testing.T) {
	d := NewDispatcher(2, 16, testLogger())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		assert.True(t, d.Enqueue("count", func(context.Context) { ran.Add(1) }))
	}

	require.Eventually(t, func() bool { return ran.Load() == 5 },
		2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)
}

func TestDispatcher_EnqueueReportsDrops(t *testing.T) {
	d := NewDispatcher(1, 1, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})

	// Occupy the only worker, then fill the queue behind it.
	require.True(t, d.Enqueue("blocker", func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.True(t, d.Enqueue("queued", func(context.Context) {}))

	// Queue is full and the worker is stuck: this one has to be dropped.
	assert.False(t, d.Enqueue("dropped", func(context.Context) {
		t.Error("dropped task must not run")
	}))

	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)
}

func TestDispatcher_ShutdownDrainsQueue(t *testing.T) {
	d := NewDispatcher(1, 16, testLogger())

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		require.True(t, d.Enqueue("drain", func(context.Context) { ran.Add(1) }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)

	assert.Equal(t, int32(8), ran.Load(), "queued tasks finish before shutdown returns")
}

func TestDispatcher_TaskPanicDoesNotKillWorker(t *testing.T) {
	d := NewDispatcher(1, 4, testLogger())

	require.True(t, d.Enqueue("bad", func(context.Context) { panic("boom") }))

	var ran atomic.Bool
	require.True(t, d.Enqueue("good", func(context.Context) { ran.Store(true) }))

	require.Eventually(t, func() bool { return ran.Load() },
		2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)
}
