package engine

// RateCounter accumulates record operations per fixed 1-second window.
//
// The mutator reports every insert and update it performs; once per second
// the run loop closes the window with SampleAndReset. The figure is "events
// per second" for the most recently completed window, not a rolling
// average, and it is independent of the generation cadence.
//
// Not safe for concurrent use: owned by the single-writer loop.
type RateCounter struct {
	current int
	last    int
}

// RecordProduced adds n operations to the open window.
func (r *RateCounter) RecordProduced(n int) {
	r.current += n
}

// SampleAndReset closes the open window: it returns the accumulated count,
// zeroes the accumulator, and retains the value for LastRate.
func (r *RateCounter) SampleAndReset() int {
	v := r.current
	r.current = 0
	r.last = v
	return v
}

// LastRate reports the most recently completed window. Zero until the
// first window closes.
func (r *RateCounter) LastRate() int {
	return r.last
}

// Pending reports the open window's accumulator without closing it.
func (r *RateCounter) Pending() int {
	return r.current
}
