package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/churn/internal/engine"
	"github.com/roach88/churn/internal/record"
)

// Scenario defines a deterministic engine run.
// Scenarios pin the seed and configuration, step the engine core by hand
// with a manual clock, and assert on the resulting structural trace and
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"scenario"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// Seed feeds the engine's random source. The same seed and steps
	// reproduce the same run.
	Seed int64 `yaml:"seed"`

	// Config sets the generation parameters. Zero fields fall back to
	// the engine defaults; out-of-range values are kept so scenarios can
	// exercise the engine's clamping.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// Steps is the operation sequence, executed in order.
	Steps []Step `yaml:"steps"`

	// Expect validates the final state after the last step.
	Expect *Expectation `yaml:"expect,omitempty"`
}

// ScenarioConfig mirrors the engine configuration in YAML-friendly form.
type ScenarioConfig struct {
	// TickInterval is a duration string ("50ms"). Empty means the default.
	TickInterval string `yaml:"tickInterval,omitempty"`

	// BatchSize is the operations per tick. Zero means the default.
	BatchSize int `yaml:"batchSize,omitempty"`

	// UpdatePercent is the per-unit update probability. The harness
	// distinguishes "absent" from an explicit 0 via a pointer so pure
	// insert scenarios can be written.
	UpdatePercent *int `yaml:"updatePercent,omitempty"`

	// PayloadMode is "simple" or "heavy". Empty means simple.
	PayloadMode string `yaml:"payloadMode,omitempty"`
}

// Step is one operation against the engine core.
type Step struct {
	// Op names the operation. See the Op constants.
	Op string `yaml:"op"`

	// Count repeats a tick. Only valid with op: tick; zero means once.
	Count int `yaml:"count,omitempty"`

	// ID is the record to remove. Required for op: delete.
	ID int64 `yaml:"id,omitempty"`

	// Text is the title filter. Only valid with op: filter; empty clears.
	Text string `yaml:"text,omitempty"`
}

// Expectation validates the final state. Every field is optional; absent
// fields are not checked.
type Expectation struct {
	// FinalSize is the expected record count after the last step.
	FinalSize *int `yaml:"finalSize,omitempty"`

	// IDs is the expected id sequence in store order.
	IDs []int64 `yaml:"ids,omitempty"`

	// LastRate is the expected most recently sampled rate.
	LastRate *int `yaml:"lastRate,omitempty"`

	// FilteredSize is the expected filtered view size.
	FilteredSize *int `yaml:"filteredSize,omitempty"`
}

// Step operation constants.
const (
	OpTick   = "tick"   // advance one interval and apply a batch
	OpResort = "resort" // reorder by value descending
	OpDelete = "delete" // remove one record by id
	OpFilter = "filter" // set the title filter
	OpSample = "sample" // advance one second and close the rate window
	OpReset  = "reset"  // clear records and restart id allocation
)

// Error code constants for scenario loading and validation.
const (
	ErrCodeReadFailed  = "E300" // File read error
	ErrCodeParseFailed = "E301" // YAML parse error (including unknown fields)
	ErrCodeInvalid     = "E302" // Field validation error
)

// ScenarioError represents an error in a scenario definition.
type ScenarioError struct {
	Code    string
	Message string
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails field validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScenarioError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading scenario file: %v", err)}
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, &ScenarioError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing YAML: %v", err)}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// engineConfig resolves the scenario config against the engine defaults.
// Values are passed through as written; the core clamps them, which is
// itself behavior scenarios may want to exercise.
func (c ScenarioConfig) engineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			return cfg, &ScenarioError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("config.tickInterval: %q is not a valid duration", c.TickInterval),
			}
		}
		cfg.TickInterval = d
	}
	if c.BatchSize != 0 {
		cfg.BatchSize = c.BatchSize
	}
	if c.UpdatePercent != nil {
		cfg.UpdatePercent = *c.UpdatePercent
	}
	if c.PayloadMode != "" {
		cfg.PayloadMode = record.Mode(c.PayloadMode)
	}
	return cfg, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return &ScenarioError{Code: ErrCodeInvalid, Message: "scenario name is required"}
	}

	if s.Config.TickInterval != "" {
		if _, err := time.ParseDuration(s.Config.TickInterval); err != nil {
			return &ScenarioError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("config.tickInterval: %q is not a valid duration", s.Config.TickInterval),
			}
		}
	}
	switch s.Config.PayloadMode {
	case "", string(record.ModeSimple), string(record.ModeHeavy):
	default:
		return &ScenarioError{
			Code:    ErrCodeInvalid,
			Message: fmt.Sprintf("config.payloadMode: %q must be %q or %q", s.Config.PayloadMode, record.ModeSimple, record.ModeHeavy),
		}
	}

	if len(s.Steps) == 0 {
		return &ScenarioError{Code: ErrCodeInvalid, Message: "steps list is required and must be non-empty"}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	if s.Expect != nil {
		for i, id := range s.Expect.IDs {
			if id <= 0 {
				return &ScenarioError{
					Code:    ErrCodeInvalid,
					Message: fmt.Sprintf("expect.ids[%d]: id must be positive, got %d", i, id),
				}
			}
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case "":
		return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: op is required", index)}
	case OpTick:
		if s.Count < 0 {
			return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: count must be non-negative for tick", index)}
		}
		if s.ID != 0 || s.Text != "" {
			return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: tick takes only count", index)}
		}
	case OpDelete:
		if s.ID <= 0 {
			return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: id is required for delete", index)}
		}
		if s.Count != 0 || s.Text != "" {
			return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: delete takes only id", index)}
		}
	case OpFilter:
		if s.Count != 0 || s.ID != 0 {
			return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: filter takes only text", index)}
		}
	case OpResort, OpSample, OpReset:
		if s.Count != 0 || s.ID != 0 || s.Text != "" {
			return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: %s takes no arguments", index, s.Op)}
		}
	default:
		return &ScenarioError{Code: ErrCodeInvalid, Message: fmt.Sprintf("steps[%d]: unknown op %q", index, s.Op)}
	}
	return nil
}
