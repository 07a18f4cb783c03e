package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/churn/internal/record"
)

func assertScenarioCode(t *testing.T, err error, code string) {
	t.Helper()
	var se *ScenarioError
	require.ErrorAs(t, err, &se, "error should be a ScenarioError")
	assert.Equal(t, code, se.Code)
}

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "single_survivor.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "single_survivor", s.Name)
	assert.Equal(t, int64(7), s.Seed)
	assert.Equal(t, "50ms", s.Config.TickInterval)
	assert.Equal(t, 10, s.Config.BatchSize)
	require.NotNil(t, s.Config.UpdatePercent)
	assert.Equal(t, 100, *s.Config.UpdatePercent)
	assert.Len(t, s.Steps, 7)
	require.NotNil(t, s.Expect)
	require.NotNil(t, s.Expect.FinalSize)
	assert.Equal(t, 1, *s.Expect.FinalSize)
	assert.Equal(t, []int64{1}, s.Expect.IDs)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assertScenarioCode(t, err, ErrCodeReadFailed)
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenario: [unclosed"), 0o644))

	_, err := LoadScenario(path)
	assertScenarioCode(t, err, ErrCodeParseFailed)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	// A typo like "step:" instead of "steps:" must fail loudly, not
	// silently produce an empty scenario.
	src := `
scenario: typo
seed: 1
step:
  - {op: tick}
`
	_, err := ParseScenario([]byte(src))
	assertScenarioCode(t, err, ErrCodeParseFailed)
}

func TestParseScenario_FieldValidation(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			"missing name",
			"seed: 1\nsteps:\n  - {op: tick}\n",
		},
		{
			"no steps",
			"scenario: x\nseed: 1\n",
		},
		{
			"missing op",
			"scenario: x\nsteps:\n  - {count: 2}\n",
		},
		{
			"unknown op",
			"scenario: x\nsteps:\n  - {op: explode}\n",
		},
		{
			"delete without id",
			"scenario: x\nsteps:\n  - {op: delete}\n",
		},
		{
			"delete with text",
			"scenario: x\nsteps:\n  - {op: delete, id: 1, text: ab}\n",
		},
		{
			"tick with id",
			"scenario: x\nsteps:\n  - {op: tick, id: 3}\n",
		},
		{
			"resort with arguments",
			"scenario: x\nsteps:\n  - {op: resort, count: 2}\n",
		},
		{
			"bad tick interval",
			"scenario: x\nconfig: {tickInterval: fast}\nsteps:\n  - {op: tick}\n",
		},
		{
			"bad payload mode",
			"scenario: x\nconfig: {payloadMode: bulky}\nsteps:\n  - {op: tick}\n",
		},
		{
			"non-positive expected id",
			"scenario: x\nsteps:\n  - {op: tick}\nexpect:\n  ids: [0]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src))
			assertScenarioCode(t, err, ErrCodeInvalid)
		})
	}
}

func TestParseScenario_MinimalScenario(t *testing.T) {
	s, err := ParseScenario([]byte("scenario: tiny\nsteps:\n  - {op: tick}\n"))
	require.NoError(t, err)

	assert.Equal(t, "tiny", s.Name)
	assert.Zero(t, s.Seed)
	assert.Nil(t, s.Expect)
}

func TestScenarioConfig_Defaults(t *testing.T) {
	cfg, err := ScenarioConfig{}.engineConfig()
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 30, cfg.UpdatePercent)
	assert.Equal(t, record.ModeSimple, cfg.PayloadMode)
}

func TestScenarioConfig_ExplicitZeroUpdatePercent(t *testing.T) {
	zero := 0
	cfg, err := ScenarioConfig{UpdatePercent: &zero}.engineConfig()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.UpdatePercent, "an explicit 0 is not the 30 default")
}

func TestScenarioConfig_OverridesAll(t *testing.T) {
	p := 100
	cfg, err := ScenarioConfig{
		TickInterval:  "50ms",
		BatchSize:     200,
		UpdatePercent: &p,
		PayloadMode:   "heavy",
	}.engineConfig()
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, 100, cfg.UpdatePercent)
	assert.Equal(t, record.ModeHeavy, cfg.PayloadMode)
}
