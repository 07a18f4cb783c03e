package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/churn/internal/engine/stats"
	"github.com/roach88/churn/internal/journal"
	"github.com/roach88/churn/internal/record"
)

// The rate counter is sampled exactly once per second, independent of the
// generation cadence.
const sampleInterval = time.Second

// Engine is the single-writer stream engine event loop.
//
// The engine owns two independent timers (generation tick, rate sample)
// and a command queue. Every mutation - a batch application, a window
// sample, a consumer command - executes as one discrete unit inside the
// Run goroutine; no two units interleave.
//
// CRITICAL: All mutations happen in the single-writer Run loop goroutine.
// External callers use the setter/command methods, which enqueue closures
// for the loop, and the query methods, which read the last published View
// without entering the loop.
//
// Thread-safety model:
//   - Setters, commands, queries, Notify(): safe from any goroutine
//   - Run(): at most one active loop per engine
//   - Core: touched only by the loop (or directly in single-threaded
//     harness use, without Run)
type Engine struct {
	core     *Core
	cmds     *commandQueue
	clock    Clock
	tokenGen TokenGenerator
	journal  *journal.Journal
	stats    *stats.Recorder
	profile  string
	seed     int64
	maxTicks int

	token   string // set by Run before the first publish; loop-owned
	running atomic.Bool
	view    atomic.Pointer[View]
	notify  chan struct{} // coalescing snapshot-changed signal (buffered, size 1)

	// Generation timer handle. Touched only from the run loop: one owned
	// handle per role, reconfiguration cancels and recreates it.
	genTicker *time.Ticker
	genC      <-chan time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock substitutes the wall clock read for record timestamps and
// samples. Timer cadence is unaffected.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTokenGenerator substitutes the run token source.
// Tests use FixedGenerator for stable journal keys.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.tokenGen = g
		}
	}
}

// WithJournal attaches a telemetry journal: one row per rate sample plus
// run lifecycle rows. Journal failures are logged and skipped, never
// fatal to the stream.
func WithJournal(j *journal.Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithStats attaches an expvar recorder updated on every tick and sample.
func WithStats(r *stats.Recorder) Option {
	return func(e *Engine) {
		e.stats = r
	}
}

// WithMaxTicks makes Run return nil after n generation ticks.
// Zero means unbounded. Used for bounded bench runs and tests.
func WithMaxTicks(n int) Option {
	return func(e *Engine) {
		e.maxTicks = n
	}
}

// WithProfileName labels the journal lifecycle row with the originating
// load profile.
func WithProfileName(name string) Option {
	return func(e *Engine) {
		e.profile = name
	}
}

// New creates an Engine. seed governs the whole stream: the same seed,
// configuration, and command sequence reproduces the same records.
func New(cfg Config, seed int64, opts ...Option) *Engine {
	e := &Engine{
		cmds:     newCommandQueue(),
		clock:    SystemClock{},
		tokenGen: UUIDv7Generator{},
		seed:     seed,
		notify:   make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.core = NewCore(cfg, seed, e.clock)
	e.view.Store(e.core.View())
	return e
}

// Core exposes the underlying single-threaded core for harness use.
// Never touch it while Run is active.
func (e *Engine) Core() *Core {
	return e.core
}

// Run starts the single-writer loop. It blocks until ctx is cancelled
// (returning ctx.Err()) or the WithMaxTicks bound is reached (returning
// nil). At most one Run may be active per engine; a second concurrent
// call returns a RUN_ACTIVE error.
//
// The rate-sample timer runs for the loop's entire lifetime in both
// scheduler states; the generation timer is live only while Running.
//
// ERROR HANDLING: telemetry failures inside the loop are logged and
// skipped. The stream never stops for a journal write.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return NewRunActiveError()
	}
	defer e.running.Store(false)

	e.token = e.tokenGen.Generate()
	cfg := e.core.Config()
	slog.Info("engine starting",
		"token", e.token,
		"interval", cfg.TickInterval,
		"batch", cfg.BatchSize,
		"update_percent", cfg.UpdatePercent,
		"payload", cfg.PayloadMode,
		"seed", e.seed,
	)

	if e.journal != nil {
		run := journal.Run{
			Token:     e.token,
			StartedAt: e.clock.Now(),
			Seed:      e.seed,
			Profile:   e.profile,
		}
		if err := e.journal.BeginRun(ctx, run); err != nil {
			slog.Warn("journal begin failed", "error", err)
		}
		defer func() {
			// The run context is already done on teardown; the final
			// lifecycle row gets its own.
			if err := e.journal.EndRun(context.Background(), e.token, e.clock.Now()); err != nil {
				slog.Warn("journal end failed", "error", err)
			}
		}()
	}

	sampleTicker := time.NewTicker(sampleInterval)
	defer sampleTicker.Stop()
	defer e.stopGenTimer()
	e.applyGenTimer()

	e.publish()

	ticks := 0
	for {
		// Drain pending commands first so reconfiguration always lands
		// before the next scheduled tick.
		for {
			cmd, ok := e.cmds.TryDequeue()
			if !ok {
				break
			}
			cmd()
			e.publish()
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopped",
				"token", e.token,
				"records", e.core.Len(),
				"ticks", e.core.Ticks(),
			)
			return ctx.Err()

		case <-e.cmds.Wait():
			// Loop back to drain.

		case <-e.genC:
			res := e.core.Tick()
			if e.stats != nil {
				e.stats.ObserveTick(res.Inserts, res.Updates, e.core.Len())
			}
			slog.Debug("tick applied",
				"inserts", res.Inserts,
				"updates", res.Updates,
				"records", e.core.Len(),
			)
			e.publish()

			ticks++
			if e.maxTicks > 0 && ticks >= e.maxTicks {
				slog.Info("tick bound reached", "token", e.token, "ticks", ticks)
				return nil
			}

		case <-sampleTicker.C:
			s := e.core.Sample()
			if e.stats != nil {
				e.stats.ObserveSample(s.EPS, s.Total)
			}
			if e.journal != nil {
				js := journal.Sample{
					RunToken:     e.token,
					Seq:          s.Seq,
					SampledAt:    s.At,
					EPS:          s.EPS,
					TotalRecords: s.Total,
				}
				if err := e.journal.WriteSample(ctx, js); err != nil {
					slog.Warn("journal write failed", "seq", s.Seq, "error", err)
				}
			}
			slog.Debug("rate sampled", "seq", s.Seq, "eps", s.EPS, "records", s.Total)
			e.publish()
		}
	}
}

// applyGenTimer reconciles the generation timer with the current config.
// Called only from the run loop. Reconfiguration cancels the current
// handle and creates a new one; two live timers for the same role never
// exist, and a firing queued on a cancelled handle is never applied.
func (e *Engine) applyGenTimer() {
	e.stopGenTimer()
	if e.core.Config().Running {
		e.genTicker = time.NewTicker(e.core.Config().TickInterval)
		e.genC = e.genTicker.C
	}
}

func (e *Engine) stopGenTimer() {
	if e.genTicker != nil {
		e.genTicker.Stop()
		e.genTicker = nil
		e.genC = nil
	}
}

// publish builds a fresh immutable view and signals subscribers. Called
// only from the run loop (and once from New).
func (e *Engine) publish() {
	v := e.core.View()
	v.RunToken = e.token
	e.view.Store(v)

	// Non-blocking: the buffer of 1 coalesces bursts. A consumer that
	// receives one signal should re-read the latest view rather than
	// count signals.
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// SetTickInterval clamps d to [MinTickInterval, MaxTickInterval] and, if
// running, restarts the generation timer with the new cadence on the next
// loop wakeup. An in-flight batch is never affected.
func (e *Engine) SetTickInterval(d time.Duration) {
	e.cmds.Enqueue(func() {
		if e.core.SetTickInterval(d) {
			e.applyGenTimer()
			slog.Debug("tick interval set", "interval", e.core.Config().TickInterval)
		}
	})
}

// SetBatchSize clamps n to [MinBatchSize, MaxBatchSize]. Takes effect on
// the next tick; changing it restarts the generation timer handle like
// any other generation parameter.
func (e *Engine) SetBatchSize(n int) {
	e.cmds.Enqueue(func() {
		if e.core.SetBatchSize(n) {
			e.applyGenTimer()
			slog.Debug("batch size set", "batch", e.core.Config().BatchSize)
		}
	})
}

// SetUpdatePercent clamps p to [MinUpdatePercent, MaxUpdatePercent].
func (e *Engine) SetUpdatePercent(p int) {
	e.cmds.Enqueue(func() {
		if e.core.SetUpdatePercent(p) {
			e.applyGenTimer()
			slog.Debug("update percent set", "update_percent", e.core.Config().UpdatePercent)
		}
	})
}

// SetPayloadMode switches between simple and heavy payloads. Unknown
// input falls back to simple.
func (e *Engine) SetPayloadMode(mode record.Mode) {
	e.cmds.Enqueue(func() {
		if e.core.SetPayloadMode(mode) {
			e.applyGenTimer()
			slog.Debug("payload mode set", "payload", e.core.Config().PayloadMode)
		}
	})
}

// Start moves the scheduler Paused to Running and starts the generation
// timer. A no-op when already running.
func (e *Engine) Start() {
	e.cmds.Enqueue(func() {
		if e.core.Start() {
			e.applyGenTimer()
			cfg := e.core.Config()
			slog.Info("generation started", "interval", cfg.TickInterval, "batch", cfg.BatchSize)
		}
	})
}

// Stop moves the scheduler Running to Paused and cancels the generation
// timer. The rate sampler keeps running and reports zero windows while
// paused. A no-op when already paused.
func (e *Engine) Stop() {
	e.cmds.Enqueue(func() {
		if e.core.Stop() {
			e.applyGenTimer()
			slog.Info("generation stopped", "records", e.core.Len())
		}
	})
}

// ResetData clears the store and restarts id allocation at 1, in either
// scheduler state. The Running/Paused state is untouched.
func (e *Engine) ResetData() {
	e.cmds.Enqueue(func() {
		e.core.ResetData()
		slog.Info("data reset")
	})
}

// DeleteByID removes one record. An absent id is a no-op, not an error.
func (e *Engine) DeleteByID(id int64) {
	e.cmds.Enqueue(func() {
		if e.core.DeleteByID(id) {
			slog.Debug("record deleted", "id", id)
		}
	})
}

// ResortByValueDesc reorders the collection by value descending, stable.
func (e *Engine) ResortByValueDesc() {
	e.cmds.Enqueue(func() {
		e.core.ResortByValueDesc()
	})
}

// SetFilterText sets the title filter for the filtered view. Empty text
// clears it.
func (e *Engine) SetFilterText(text string) {
	e.cmds.Enqueue(func() {
		e.core.SetFilterText(text)
	})
}

// Snapshot returns the full record sequence from the last published view.
func (e *Engine) Snapshot() []*record.Record {
	return e.view.Load().Records
}

// FilteredSnapshot returns the title-filtered sequence from the last
// published view.
func (e *Engine) FilteredSnapshot() []*record.Record {
	return e.view.Load().Filtered
}

// TotalCount returns the live record count from the last published view.
func (e *Engine) TotalCount() int {
	return e.view.Load().Total()
}

// LastSecondRate returns the most recently completed rate window.
func (e *Engine) LastSecondRate() int {
	return e.view.Load().LastRate
}

// RunningState reports the scheduler state from the last published view.
func (e *Engine) RunningState() State {
	return e.view.Load().State()
}

// Config returns the configuration from the last published view.
func (e *Engine) Config() Config {
	return e.view.Load().Config
}

// Token returns the active run's token, or "" before the first Run.
func (e *Engine) Token() string {
	return e.view.Load().RunToken
}

// CurrentView returns the last published view.
func (e *Engine) CurrentView() *View {
	return e.view.Load()
}

// Notify returns the snapshot-changed channel. Signals coalesce; after a
// receive, read the queries for the latest state.
func (e *Engine) Notify() <-chan struct{} {
	return e.notify
}

// PendingCommands returns the number of queued, unexecuted commands.
// Useful for monitoring and testing.
func (e *Engine) PendingCommands() int {
	return e.cmds.Len()
}
