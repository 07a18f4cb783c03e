// Package harness executes scenarios against the engine core with no
// timers and no real clock.
//
// A scenario is a seed, a configuration, and an operation sequence. The
// harness drives engine.Core directly in one goroutine: a tick step
// advances a manual clock by one interval and applies one batch, a sample
// step advances one second and closes the rate window. Nothing here races
// and nothing depends on scheduling, so a scenario produces the same
// trace on every run.
//
// Traces are structural: sizes, insert/update splits, ids, rates. The
// generated record contents never appear, so a trace is stable across
// payload modes and stays comparable under goldens.
package harness

import (
	"fmt"
	"time"

	"github.com/roach88/churn/internal/engine"
	"github.com/roach88/churn/internal/testutil"
)

// Harness drives one scenario execution.
type Harness struct {
	core  *engine.Core
	clock *testutil.ManualClock
	cfg   engine.Config
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh core for isolation. The returned
// error covers definition problems only; expectation failures land in
// Result.Errors with Pass false.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.Config.engineConfig()
	if err != nil {
		return nil, err
	}

	clock := testutil.NewManualClock()
	core := engine.NewCore(cfg, scenario.Seed, clock)

	h := &Harness{
		core:  core,
		clock: clock,
		cfg:   core.Config(),
	}

	result := NewResult()
	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, err
	}

	result.FinalSize = core.Len()
	result.IDs = traceIDs(h.ids())
	result.LastRate = core.LastRate()

	h.evaluateExpect(scenario.Expect, result)
	return result, nil
}

// executeSteps runs all steps in order, appending one trace event per
// executed operation.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		switch step.Op {
		case OpTick:
			n := step.Count
			if n == 0 {
				n = 1
			}
			for t := 0; t < n; t++ {
				h.clock.Advance(h.cfg.TickInterval)
				res := h.core.Tick()
				result.addEvent(TraceEvent{
					Op:      OpTick,
					Size:    h.core.Len(),
					Inserts: res.Inserts,
					Updates: res.Updates,
					IDs:     traceIDs(h.ids()),
				})
			}

		case OpResort:
			h.core.ResortByValueDesc()
			result.addEvent(TraceEvent{
				Op:   OpResort,
				Size: h.core.Len(),
				IDs:  traceIDs(h.ids()),
			})

		case OpDelete:
			removed := h.core.DeleteByID(step.ID)
			result.addEvent(TraceEvent{
				Op:      OpDelete,
				Size:    h.core.Len(),
				Removed: &removed,
				IDs:     traceIDs(h.ids()),
			})

		case OpFilter:
			h.core.SetFilterText(step.Text)
			matches := len(h.core.FilteredSnapshot())
			result.addEvent(TraceEvent{
				Op:      OpFilter,
				Size:    h.core.Len(),
				Matches: &matches,
			})

		case OpSample:
			h.clock.Advance(time.Second)
			s := h.core.Sample()
			eps := s.EPS
			result.addEvent(TraceEvent{
				Op:   OpSample,
				Size: h.core.Len(),
				EPS:  &eps,
			})

		case OpReset:
			h.core.ResetData()
			result.addEvent(TraceEvent{
				Op:   OpReset,
				Size: h.core.Len(),
			})

		default:
			// Validation rejects unknown ops; reaching this is a harness bug.
			return &ScenarioError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("steps[%d]: unknown op %q", i, step.Op),
			}
		}
	}
	return nil
}

// evaluateExpect checks the final state against the expectation.
func (h *Harness) evaluateExpect(exp *Expectation, result *Result) {
	if exp == nil {
		return
	}

	if exp.FinalSize != nil && *exp.FinalSize != result.FinalSize {
		result.AddError(fmt.Sprintf("final size: want %d, got %d", *exp.FinalSize, result.FinalSize))
	}

	if exp.IDs != nil {
		got := h.ids()
		if !equalIDs(exp.IDs, got) {
			result.AddError(fmt.Sprintf("ids: want %v, got %v", exp.IDs, got))
		}
	}

	if exp.LastRate != nil && *exp.LastRate != result.LastRate {
		result.AddError(fmt.Sprintf("last rate: want %d, got %d", *exp.LastRate, result.LastRate))
	}

	if exp.FilteredSize != nil {
		n := len(h.core.FilteredSnapshot())
		if *exp.FilteredSize != n {
			result.AddError(fmt.Sprintf("filtered size: want %d, got %d", *exp.FilteredSize, n))
		}
	}
}

// ids returns the store's id sequence in order.
func (h *Harness) ids() []int64 {
	recs := h.core.Snapshot()
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

func equalIDs(want, got []int64) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}
