// Package profile loads named engine configurations from CUE documents.
//
// A profile pins every generation parameter, so a run is reproducible from
// the file plus a seed. Loading validates strictly: a value the engine
// would merely clamp is rejected here with its CUE position, because a
// profile that says 5000 records per tick is a typo, not an intent.
package profile

import (
	"time"

	"github.com/roach88/churn/internal/engine"
	"github.com/roach88/churn/internal/record"
)

// Profile is one validated engine configuration.
type Profile struct {
	Name          string
	TickInterval  time.Duration
	BatchSize     int
	UpdatePercent int
	PayloadMode   record.Mode
	Duration      time.Duration // optional run bound; zero means unbounded
}

// Config builds the engine configuration the profile describes. The
// scheduler starts paused; the caller decides when generation begins.
func (p *Profile) Config() engine.Config {
	return engine.Config{
		TickInterval:  p.TickInterval,
		BatchSize:     p.BatchSize,
		UpdatePercent: p.UpdatePercent,
		PayloadMode:   p.PayloadMode,
		Running:       false,
	}
}

// Apply pushes the profile's parameters onto a live engine through the
// public setters, so the engine's own clamping still governs.
func (p *Profile) Apply(e *engine.Engine) {
	e.SetTickInterval(p.TickInterval)
	e.SetBatchSize(p.BatchSize)
	e.SetUpdatePercent(p.UpdatePercent)
	e.SetPayloadMode(p.PayloadMode)
}
