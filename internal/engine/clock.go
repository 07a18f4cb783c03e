package engine

import "time"

// Clock abstracts wall-time reads so deterministic runs can substitute a
// manual clock.
//
// The engine reads time for record timestamps and rate-sample rows only.
// Tick scheduling uses real timers owned by the run loop; a harness run
// has no timers at all and advances its clock by hand.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the operating system clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
