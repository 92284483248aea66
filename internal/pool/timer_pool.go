// Package pool recycles the timers used to bound request waits and shutdown.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer armed to fire after d, reusing a pooled one if possible.
//
// Return the timer with PutTimer once the caller stops selecting on its channel.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // only *time.Timer is ever put into the pool
		t.Reset(d)

		return t
	}

	return time.NewTimer(d)
}

// PutTimer stops t and returns it to the pool.
//
// t must not be used by the caller afterwards.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// drain a fire the caller never consumed
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}

// After waits for d or until done is closed, whichever comes first. It reports
// whether the full duration elapsed.
func After(d time.Duration, done <-chan struct{}) bool {
	t := GetTimer(d)
	defer PutTimer(t)

	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}
