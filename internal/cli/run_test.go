package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/churn/internal/journal"
)

func TestRunBoundedDuration(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--duration", "300ms", "--seed", "42"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Engine started")
	assert.Contains(t, output, "stopped after")
	assert.Contains(t, output, "seed        42")
	assert.Contains(t, output, "operations")
}

func TestRunJSONReport(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--duration", "350ms", "--seed", "42"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "stdout must be pure JSON")
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunToken)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), data["seed"])
	assert.Equal(t, resp.RunToken, data["token"])
	// 350ms of 100ms ticks lands at least two batches.
	assert.GreaterOrEqual(t, data["ticks"], float64(2))
	assert.GreaterOrEqual(t, data["operations"], float64(20))
}

func TestRunWithProfile(t *testing.T) {
	tmpDir := t.TempDir()
	profilePath := filepath.Join(tmpDir, "quick.cue")
	prof := `profile: {
	name:          "quick"
	tickInterval:  10
	batchSize:     5
	updatePercent: 0
	duration:      "250ms"
}
`
	require.NoError(t, os.WriteFile(profilePath, []byte(prof), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--profile", profilePath, "--seed", "7"})

	// The profile's own duration bounds the run; no --duration needed.
	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "profile     quick")
	assert.Contains(t, output, "stopped after")
}

func TestRunInvalidProfile(t *testing.T) {
	tmpDir := t.TempDir()
	profilePath := filepath.Join(tmpDir, "bad.cue")
	prof := `profile: {
	name:          "bad"
	tickInterval:  5000
	batchSize:     10
	updatePercent: 30
}
`
	require.NoError(t, os.WriteFile(profilePath, []byte(prof), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--profile", profilePath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load profile")
}

func TestRunProfileNotFound(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--profile", "/nonexistent/profile.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunJournalsRun(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "telemetry.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--duration", "250ms", "--seed", "42", "--journal", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotEmpty(t, resp.RunToken)

	jnl, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer jnl.Close()

	run, err := jnl.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resp.RunToken, run.Token)
	assert.Equal(t, int64(42), run.Seed)
	assert.False(t, run.StoppedAt.IsZero(), "a clean exit stamps the stop time")
}

func TestRunRespectsParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--seed", "1"})

	// No --duration: the parent context is the only stop condition.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- cmd.ExecuteContext(ctx)
	}()

	select {
	case err := <-errChan:
		require.NoError(t, err, "context cancellation is a graceful stop")
	case <-time.After(2 * time.Second):
		t.Fatal("command did not respect context cancellation")
	}

	assert.Contains(t, buf.String(), "stopped after")
}
