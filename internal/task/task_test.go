package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosanlab/go-trgen/logger"
)

func TestManager_StartStopWait(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())

	var iterations atomic.Int32
	var cancelled atomic.Bool

	err := mgr.Start("loop", func() bool {
		iterations.Add(1)
		time.Sleep(time.Millisecond)
		return true
	}, func() { cancelled.Store(true) })
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return iterations.Load() > 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, mgr.TaskCount())

	mgr.Stop()
	mgr.Wait()

	assert.Equal(t, 0, mgr.TaskCount())
	assert.True(t, cancelled.Load())
}

func TestManager_TaskReturnsFalse(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())

	done := make(chan struct{})
	require.NoError(t, mgr.Start("once", func() bool { return false }, func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not exit")
	}

	mgr.Wait()
	assert.Equal(t, 0, mgr.TaskCount())
}

func TestManager_ReuseAfterWait(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())

	mgr.Stop()
	require.ErrorIs(t, mgr.Start("stopped", func() bool { return true }, nil), ErrStopped)

	mgr.Wait()
	require.NoError(t, mgr.Start("again", func() bool { return false }, nil))
	mgr.Wait()
}

func TestManager_RecoversPanic(t *testing.T) {
	l := logger.NewMockLogger().AllowAll()
	mgr := NewManager(context.Background(), l)

	require.NoError(t, mgr.Start("panicky", func() bool { panic("boom") }, nil))
	mgr.Wait()

	l.AssertCalled(t, "Error", "panic in task loop", []any{"name", "panicky", "panic", "boom"})
}
