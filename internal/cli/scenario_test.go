package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertStreamPath points at the checked-in deterministic scenario.
func insertStreamPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join("..", "..", "testdata", "scenarios", "insert_stream.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("testdata/scenarios/insert_stream.yaml not found")
	}
	return path
}

func TestScenarioPasses(t *testing.T) {
	path := insertStreamPath(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Scenario: insert_stream")
	assert.Contains(t, output, "✓ insert_stream")
	assert.Contains(t, output, "tick")
	assert.Contains(t, output, "eps=8")
	assert.Contains(t, output, "removed=true")
}

func TestScenarioJSON(t *testing.T) {
	path := insertStreamPath(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "insert_stream", data["name"])
	assert.Equal(t, true, data["pass"])
	assert.Equal(t, "match", data["golden"], "checked-in golden should match")
	assert.Equal(t, float64(4), data["final_size"])
}

func TestScenarioNotFound(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/scenario.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "not found")
}

func TestScenarioMalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenario: [unclosed"), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestScenarioExpectationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "wrong.yaml")
	scenario := `scenario: wrong
seed: 1
config: {tickInterval: 10ms, batchSize: 2, updatePercent: 0}
steps:
  - {op: tick}
expect:
  finalSize: 999
`
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ wrong")
	assert.Contains(t, output, "final size")
}

func TestScenarioGoldenUpdate(t *testing.T) {
	src := insertStreamPath(t)
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "insert_stream.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--update"})

	err = cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "golden updated")

	// The regenerated golden must be byte-identical to the checked-in one.
	written, err := os.ReadFile(filepath.Join(tmpDir, "golden", "insert_stream.golden"))
	require.NoError(t, err)
	checkedIn, err := os.ReadFile(filepath.Join("..", "..", "testdata", "scenarios", "golden", "insert_stream.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(checkedIn), string(written))
}

func TestScenarioGoldenMismatch(t *testing.T) {
	src := insertStreamPath(t)
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "insert_stream.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "golden", "insert_stream.golden"), []byte("{}"), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "does not match golden file")
}

func TestScenarioWithoutGolden(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bare.yaml")
	scenario := `scenario: bare
seed: 5
config: {tickInterval: 10ms, batchSize: 2, updatePercent: 0}
steps:
  - {op: tick}
expect:
  finalSize: 2
  ids: [1, 2]
`
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewScenarioCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err, "assertions alone decide when no golden exists")
	assert.Contains(t, buf.String(), "✓ bare")
}

func TestGoldenFilePath(t *testing.T) {
	got := goldenFilePath(filepath.Join("testdata", "scenarios", "insert_stream.yaml"))
	want := filepath.Join("testdata", "scenarios", "golden", "insert_stream.golden")
	assert.Equal(t, want, got)
}
