package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPool(t *testing.T) {
	t.Run("Get and Put", func(t *testing.T) {
		timer1 := GetTimer(time.Second)
		assert.NotNil(t, timer1)

		PutTimer(timer1)

		timer2 := GetTimer(20 * time.Millisecond)
		assert.NotNil(t, timer2)

		select {
		case <-timer2.C:
		case <-time.After(time.Second):
			t.Fatal("recycled timer did not fire")
		}
		PutTimer(timer2)
	})

	t.Run("Put fired timer", func(t *testing.T) {
		timer := GetTimer(time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		PutTimer(timer)

		timer = GetTimer(200 * time.Millisecond)
		defer PutTimer(timer)

		select {
		case <-timer.C:
			t.Error("stale fire leaked into recycled timer")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestAfter(t *testing.T) {
	assert.True(t, After(5*time.Millisecond, nil))

	done := make(chan struct{})
	close(done)
	assert.False(t, After(time.Second, done))
}
