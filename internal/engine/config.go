package engine

import (
	"time"

	"github.com/roach88/churn/internal/record"
)

// Configuration bounds. Out-of-range input is clamped to the nearest
// bound, never rejected; unparsable input at the edges (CLI flags,
// profiles) maps to the minimum before it reaches the engine.
const (
	MinTickInterval = 1 * time.Millisecond
	MaxTickInterval = 1000 * time.Millisecond

	MinBatchSize = 1
	MaxBatchSize = 500

	MinUpdatePercent = 0
	MaxUpdatePercent = 100
)

// Config carries the generation parameters. All fields are mutable at any
// time through the engine setters; a change takes effect on the next
// generation tick, never retroactively on one in flight.
type Config struct {
	TickInterval  time.Duration
	BatchSize     int
	UpdatePercent int
	PayloadMode   record.Mode
	Running       bool
}

// DefaultConfig returns the parameters a fresh engine starts with:
// moderate cadence, small batches, mixed mutations, shallow payloads,
// paused until started.
func DefaultConfig() Config {
	return Config{
		TickInterval:  100 * time.Millisecond,
		BatchSize:     10,
		UpdatePercent: 30,
		PayloadMode:   record.ModeSimple,
		Running:       false,
	}
}

// Clamp normalizes every field into its valid range. An unknown payload
// mode falls back to simple.
func (c Config) Clamp() Config {
	c.TickInterval = ClampTickInterval(c.TickInterval)
	c.BatchSize = ClampBatchSize(c.BatchSize)
	c.UpdatePercent = ClampUpdatePercent(c.UpdatePercent)
	c.PayloadMode = record.ParseMode(string(c.PayloadMode))
	return c
}

// State reports the scheduler state the config implies.
func (c Config) State() State {
	if c.Running {
		return StateRunning
	}
	return StatePaused
}

// ClampTickInterval bounds d to [MinTickInterval, MaxTickInterval].
func ClampTickInterval(d time.Duration) time.Duration {
	if d < MinTickInterval {
		return MinTickInterval
	}
	if d > MaxTickInterval {
		return MaxTickInterval
	}
	return d
}

// ClampBatchSize bounds n to [MinBatchSize, MaxBatchSize].
func ClampBatchSize(n int) int {
	if n < MinBatchSize {
		return MinBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// ClampUpdatePercent bounds p to [MinUpdatePercent, MaxUpdatePercent].
func ClampUpdatePercent(p int) int {
	if p < MinUpdatePercent {
		return MinUpdatePercent
	}
	if p > MaxUpdatePercent {
		return MaxUpdatePercent
	}
	return p
}
