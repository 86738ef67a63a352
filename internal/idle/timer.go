// Package idle implements the daemon's idle-shutdown timer: a single
// one-shot timer that is rearmed by local protocol activity and, on
// expiry, invokes a caller-supplied shutdown callback.
package idle

import (
	"sync"
	"time"
)

// Timer is safe for concurrent use: Reset may be called from any
// connection's goroutine concurrently with another connection's Reset
// or with the timer firing.
type Timer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
	onExpire func()
	stopped  bool
}

// New creates a Timer that, once armed, invokes onExpire after
// duration of inactivity. A duration of 0 disables the timer entirely:
// Reset becomes a no-op and onExpire is never called, matching
// idle_timeout_seconds == 0 meaning "idle shutdown disabled".
func New(duration time.Duration, onExpire func()) *Timer {
	return &Timer{duration: duration, onExpire: onExpire}
}

// Reset (re)arms the timer for another full duration. Called once when
// the server starts listening, then on accept, on read, and on each
// parsed request dispatch; never called on HTTP completion.
func (t *Timer) Reset() {
	if t.duration <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	if t.timer == nil {
		t.timer = time.AfterFunc(t.duration, t.fire)
		return
	}
	t.timer.Reset(t.duration)
}

func (t *Timer) fire() {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return
	}
	t.onExpire()
}

// Stop disarms the timer permanently; after Stop, Reset is a no-op and
// onExpire will never fire. Used during shutdown so a STOP frame or a
// framing error doesn't race with a concurrent idle expiry.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}
