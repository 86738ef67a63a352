package idle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerFiresAfterDuration(t *testing.T) {
	var fired atomic.Bool
	timer := New(20*time.Millisecond, func() { fired.Store(true) })
	timer.Reset()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, fired.Load())
}

func TestTimerResetExtendsDeadline(t *testing.T) {
	var fired atomic.Bool
	timer := New(50*time.Millisecond, func() { fired.Store(true) })
	timer.Reset()

	time.Sleep(30 * time.Millisecond)
	timer.Reset() // push the deadline out again before it fires
	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())

	time.Sleep(40 * time.Millisecond)
	assert.True(t, fired.Load())
}

func TestTimerDisabledWhenZeroDuration(t *testing.T) {
	var fired atomic.Bool
	timer := New(0, func() { fired.Store(true) })
	timer.Reset()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTimerStopPreventsExpiry(t *testing.T) {
	var fired atomic.Bool
	timer := New(20*time.Millisecond, func() { fired.Store(true) })
	timer.Reset()
	timer.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())

	// Reset after Stop must remain a no-op.
	timer.Reset()
	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}
