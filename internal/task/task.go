// Package task manages the goroutines owned by a connection or an emulator.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosanlab/go-trgen/logger"
)

// startTimeout bounds how long Start waits for a goroutine to report that it runs.
const startTimeout = 5 * time.Second

// ErrStopped is returned when a task is started on a stopped manager.
var ErrStopped = errors.New("task manager already stopped")

// Func performs one iteration of a task. It returns true to be called again,
// or false to end the goroutine.
type Func func() bool

// CancelFunc is called once when a task goroutine exits.
type CancelFunc func()

// Manager manages the lifecycle of goroutines.
//
// All goroutines share one context derived from the parent passed to NewManager.
// Stop cancels it, Wait blocks until every goroutine returned and then re-arms the
// manager so it can be reused for the next connection.
//
//	mgr := task.NewManager(ctx, logger)
//	_ = mgr.Start("worker", func() bool {
//	    // ... one unit of work ...
//	    return true
//	}, nil)
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	pctx   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32
	mu     sync.RWMutex // protect ctx and cancel
	taskMu sync.RWMutex // protect task creation during Wait()
}

// NewManager creates a new Manager with ctx as the parent context.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by the running tasks.
func (mgr *Manager) Context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start runs taskFunc in a loop on a new goroutine until it returns false or the
// manager is stopped. cancelFunc, when not nil, runs after the loop ends.
func (mgr *Manager) Start(name string, taskFunc Func, cancelFunc CancelFunc) error {
	mgr.logger.Debug("start task", "name", name)

	ctx := mgr.Context()
	select {
	case <-ctx.Done():
		return ErrStopped
	default:
	}

	started := make(chan struct{})

	mgr.taskMu.RLock()
	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()

		mgr.count.Add(1)
		close(started)

		defer func() {
			mgr.count.Add(-1)
			mgr.logger.Debug(fmt.Sprintf("%s task terminated", name), "task_count", mgr.TaskCount())
		}()

		if cancelFunc != nil {
			defer cancelFunc()
		}

		mgr.runLoop(ctx, name, taskFunc)
	}()
	mgr.taskMu.RUnlock()

	select {
	case <-started:
		return nil
	case <-time.After(startTimeout):
		return fmt.Errorf("timeout waiting for %s to start", name)
	}
}

// Stop signals all running goroutines.
func (mgr *Manager) Stop() {
	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait waits for all goroutines to terminate, then prepares a fresh context so
// the manager can start new tasks.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// TaskCount returns the number of currently running goroutines.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) runLoop(ctx context.Context, name string, taskFunc Func) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task loop", "name", name, "panic", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if !taskFunc() {
				return
			}
		}
	}
}
