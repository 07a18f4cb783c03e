package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant deterministic runs start at. Scenario traces and
// golden files assume it, so it never changes.
var Epoch = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

// ManualClock is a thread-safe clock that only moves when told to.
//
// Unlike engine.SystemClock, ManualClock advances by explicit calls, so a
// scenario run reads identical timestamps on every execution. It can be
// reset for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at Epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// NewManualClockAt creates a clock frozen at t.
func NewManualClockAt(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now returns the current instant without advancing.
//
// Implements engine.Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
//
// Monotonic by convention: tests only pass non-negative durations.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Reset rewinds the clock to Epoch.
//
// Used for test reuse. After Reset(), Now() returns Epoch again.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
