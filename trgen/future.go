package trgen

import (
	"context"
	"sync"
)

// Future is the pending result of a request submitted with SendAsync.
//
// A Future is resolved exactly once, with the acknowledged value or an error.
// Callers that never wait on a Future will not observe a failure of its request.
type Future struct {
	cmd   uint32
	once  sync.Once
	done  chan struct{}
	value uint32
	err   error
}

func newFuture(cmd uint32) *Future {
	return &Future{cmd: cmd, done: make(chan struct{})}
}

// resolvedFuture returns a Future that already failed with err.
func resolvedFuture(cmd uint32, err error) *Future {
	f := newFuture(cmd)
	f.resolve(0, err)

	return f
}

// resolve completes the future. Calls after the first one are ignored.
func (f *Future) resolve(value uint32, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
		resolved = true
	})

	return resolved
}

// Command returns the command id of the request.
func (f *Future) Command() uint32 { return f.cmd }

// Done returns a channel closed when the future is resolved.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future is resolved or ctx is done.
//
// A ctx that is done only abandons the wait; the request stays queued and is
// still sent to the device.
func (f *Future) Wait(ctx context.Context) (uint32, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Resolved reports whether the future is complete.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
