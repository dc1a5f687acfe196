package swimtemp

import (
	"sync"
	"time"
)

// Throttle lets a call through at most once per interval. The first call is
// always allowed.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	last     time.Time
	ran      bool
}

// NewThrottle creates a Throttle. A nil clock means time.Now.
func NewThrottle(interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{interval: interval, now: now}
}

// Allow reports whether the interval has elapsed since the last allowed call
// and, if so, starts a new interval.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.ran && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	t.ran = true
	return true
}

// Reset makes the next Allow succeed, e.g. after the guarded call failed.
func (t *Throttle) Reset() {
	t.mu.Lock()
	t.ran = false
	t.mu.Unlock()
}

// Interval returns the configured interval.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}
