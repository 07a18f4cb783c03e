package engine

import (
	"math/rand"
	"time"

	"github.com/roach88/churn/internal/record"
	"github.com/roach88/churn/internal/store"
)

// State is the scheduler's generation state.
type State string

const (
	// StateRunning means the generation timer is live.
	StateRunning State = "running"
	// StatePaused means generation is stopped; the rate sampler still runs.
	StatePaused State = "paused"
)

// Sample is one closed rate window.
type Sample struct {
	Seq   int64     // window number within the run, from 1
	At    time.Time // close time per the engine clock
	EPS   int       // operations recorded in the window
	Total int       // live records at close
}

// View is the immutable snapshot published after every mutation unit.
//
// Records and Filtered share record pointers and are never mutated after
// publication; holding a View across later engine activity is safe.
type View struct {
	Records    []*record.Record
	Filtered   []*record.Record
	FilterText string
	Config     Config
	LastRate   int
	Ticks      int64
	RunToken   string
}

// Total returns the live record count.
func (v *View) Total() int {
	return len(v.Records)
}

// State reports the scheduler state at publication time.
func (v *View) State() State {
	return v.Config.State()
}

// Core is the single-threaded heart of the engine: store, allocator,
// record factory, mutation policy, rate counter, and the current
// configuration.
//
// Core has no timers and no goroutines, and it never blocks. Engine
// drives it from the single-writer run loop; the scenario harness drives
// it directly so runs are fully deterministic. Every exported method is
// one mutation unit and must be called from one goroutine at a time.
type Core struct {
	cfg     Config
	clock   Clock
	store   *store.Store
	alloc   *record.Allocator
	rate    *RateCounter
	mutator *Mutator

	filterText string
	ticks      int64
	windowSeq  int64
}

// NewCore builds a core with all collaborators wired. seed governs both
// the mutation rolls and the record contents through one shared rng, so
// the same seed and call sequence reproduces the same stream. A nil clock
// falls back to SystemClock.
func NewCore(cfg Config, seed int64, clock Clock) *Core {
	if clock == nil {
		clock = SystemClock{}
	}
	rng := rand.New(rand.NewSource(seed))
	st := store.New()
	alloc := record.NewAllocator()
	rate := &RateCounter{}
	factory := record.NewFactory(rng, clock.Now)

	return &Core{
		cfg:     cfg.Clamp(),
		clock:   clock,
		store:   st,
		alloc:   alloc,
		rate:    rate,
		mutator: NewMutator(rng, st, alloc, factory, rate),
	}
}

// Tick applies one batch under the current parameters.
func (c *Core) Tick() BatchResult {
	res := c.mutator.ApplyBatch(c.cfg.BatchSize, c.cfg.UpdatePercent, c.cfg.PayloadMode)
	c.ticks++
	return res
}

// Sample closes the current rate window and reports it.
func (c *Core) Sample() Sample {
	c.windowSeq++
	return Sample{
		Seq:   c.windowSeq,
		At:    c.clock.Now(),
		EPS:   c.rate.SampleAndReset(),
		Total: c.store.Len(),
	}
}

// SetTickInterval clamps and stores the generation cadence.
// Returns true when the effective value changed.
func (c *Core) SetTickInterval(d time.Duration) bool {
	d = ClampTickInterval(d)
	if d == c.cfg.TickInterval {
		return false
	}
	c.cfg.TickInterval = d
	return true
}

// SetBatchSize clamps and stores the operations per tick.
// Returns true when the effective value changed.
func (c *Core) SetBatchSize(n int) bool {
	n = ClampBatchSize(n)
	if n == c.cfg.BatchSize {
		return false
	}
	c.cfg.BatchSize = n
	return true
}

// SetUpdatePercent clamps and stores the per-unit update probability.
// Returns true when the effective value changed.
func (c *Core) SetUpdatePercent(p int) bool {
	p = ClampUpdatePercent(p)
	if p == c.cfg.UpdatePercent {
		return false
	}
	c.cfg.UpdatePercent = p
	return true
}

// SetPayloadMode stores the payload shape. Unknown input falls back to
// simple. Returns true when the effective value changed.
func (c *Core) SetPayloadMode(mode record.Mode) bool {
	mode = record.ParseMode(string(mode))
	if mode == c.cfg.PayloadMode {
		return false
	}
	c.cfg.PayloadMode = mode
	return true
}

// Start moves the scheduler Paused to Running.
// Returns false when already running.
func (c *Core) Start() bool {
	if c.cfg.Running {
		return false
	}
	c.cfg.Running = true
	return true
}

// Stop moves the scheduler Running to Paused.
// Returns false when already paused.
func (c *Core) Stop() bool {
	if !c.cfg.Running {
		return false
	}
	c.cfg.Running = false
	return true
}

// ResetData clears the store and restarts id allocation at 1. The
// scheduler state, the filter text, and the open rate window are all
// untouched; only record state resets.
func (c *Core) ResetData() {
	c.store.Reset()
	c.alloc.Reset()
}

// DeleteByID removes one record. Absent ids are a no-op; the returned
// bool reports whether a record was removed.
func (c *Core) DeleteByID(id int64) bool {
	return c.store.DeleteByID(id)
}

// ResortByValueDesc reorders the store by value descending, stable.
func (c *Core) ResortByValueDesc() {
	c.store.ResortByValueDesc()
}

// SetFilterText stores the title filter applied to the filtered view.
// Empty text means no filtering.
func (c *Core) SetFilterText(text string) {
	c.filterText = text
}

// Len returns the live record count.
func (c *Core) Len() int {
	return c.store.Len()
}

// Ticks returns the number of batches applied since construction.
func (c *Core) Ticks() int64 {
	return c.ticks
}

// Config returns the current clamped configuration.
func (c *Core) Config() Config {
	return c.cfg
}

// State reports the scheduler state.
func (c *Core) State() State {
	return c.cfg.State()
}

// LastRate reports the most recently completed rate window.
func (c *Core) LastRate() int {
	return c.rate.LastRate()
}

// Snapshot returns the records in store order.
func (c *Core) Snapshot() []*record.Record {
	return c.store.Snapshot()
}

// FilteredSnapshot returns the records passing the current title filter,
// in store order.
func (c *Core) FilteredSnapshot() []*record.Record {
	return c.store.FilterByTitle(c.filterText)
}

// View builds the immutable snapshot the engine publishes. When no filter
// is set the filtered view aliases the full one.
func (c *Core) View() *View {
	recs := c.store.Snapshot()
	filtered := recs
	if c.filterText != "" {
		filtered = c.store.FilterByTitle(c.filterText)
	}
	return &View{
		Records:    recs,
		Filtered:   filtered,
		FilterText: c.filterText,
		Config:     c.cfg,
		LastRate:   c.rate.LastRate(),
		Ticks:      c.ticks,
	}
}
