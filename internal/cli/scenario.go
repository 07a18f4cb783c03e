package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/churn/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Update bool // regenerate the golden file
}

// ScenarioReport holds the outcome of one scenario execution.
type ScenarioReport struct {
	Name      string               `json:"name"`
	Pass      bool                 `json:"pass"`
	Golden    string               `json:"golden,omitempty"` // "match", "mismatch", or "updated"
	Errors    []string             `json:"errors,omitempty"`
	FinalSize int                  `json:"final_size"`
	LastRate  int                  `json:"last_rate"`
	Trace     []harness.TraceEvent `json:"trace"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file.yaml>",
		Short: "Run one scripted scenario deterministically",
		Long: `Run a YAML scenario against a manual clock and print its trace.

The engine core executes each step directly, so the run is fully
deterministic under the scenario's seed. When a golden file exists
next to the scenario (golden/<name>.golden), the trace is compared
against it; --update rewrites it instead.

Exit codes:
  0 - scenario passed
  1 - expectations or golden comparison failed
  2 - command error (file not found)

Examples:
  churn scenario testdata/scenarios/insert_stream.yaml
  churn scenario testdata/scenarios/insert_stream.yaml --update
  churn scenario testdata/scenarios/insert_stream.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate the golden file")

	return cmd
}

func runScenarioFile(opts *ScenarioOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = formatter.Error(harness.ErrCodeReadFailed, fmt.Sprintf("scenario not found: %s", path), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario not found: %s", path))
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(harness.ErrCodeParseFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load scenario", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		_ = formatter.Error(harness.ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}

	report := ScenarioReport{
		Name:      scenario.Name,
		Pass:      result.Pass,
		Errors:    result.Errors,
		FinalSize: result.FinalSize,
		LastRate:  result.LastRate,
		Trace:     result.Trace,
	}

	// Golden handling: --update rewrites, an existing golden compares,
	// a missing golden leaves assertions as the only check.
	goldenPath := goldenFilePath(path)
	switch {
	case opts.Update:
		if err := updateGoldenFile(scenario, result, goldenPath); err != nil {
			return WrapExitError(ExitCommandError, "failed to update golden file", err)
		}
		report.Golden = "updated"
	default:
		match, err := compareWithGolden(scenario, result, goldenPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "golden comparison failed", err)
		}
		switch match {
		case goldenMatch:
			report.Golden = "match"
		case goldenMismatch:
			report.Golden = "mismatch"
			report.Pass = false
			report.Errors = append(report.Errors, "trace does not match golden file (run with --update to regenerate)")
		}
	}

	return outputScenarioReport(formatter, report)
}

// goldenFilePath returns the golden file path for a scenario file:
// a golden/ directory beside it, same base name.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// updateGoldenFile writes the current trace as the golden file.
func updateGoldenFile(scenario *harness.Scenario, result *harness.Result, goldenPath string) error {
	data, err := harness.MarshalSnapshot(scenario, result)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

type goldenOutcome int

const (
	goldenAbsent goldenOutcome = iota
	goldenMatch
	goldenMismatch
)

// compareWithGolden compares the result trace against the golden file,
// byte for byte. A missing golden file is not an error.
func compareWithGolden(scenario *harness.Scenario, result *harness.Result, goldenPath string) (goldenOutcome, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return goldenAbsent, nil
	}
	if err != nil {
		return goldenAbsent, fmt.Errorf("read golden file: %w", err)
	}

	currentData, err := harness.MarshalSnapshot(scenario, result)
	if err != nil {
		return goldenAbsent, fmt.Errorf("marshal trace: %w", err)
	}

	if bytes.Equal(goldenData, currentData) {
		return goldenMatch, nil
	}
	return goldenMismatch, nil
}

// outputScenarioReport writes the report in the configured format and
// maps a failed scenario to exit code 1.
func outputScenarioReport(formatter *OutputFormatter, report ScenarioReport) error {
	if formatter.Format == "json" {
		status := "ok"
		var cliErr *CLIError
		if !report.Pass {
			status = "error"
			cliErr = &CLIError{
				Code:    "E310",
				Message: fmt.Sprintf("scenario %s failed", report.Name),
			}
		}
		if err := writeJSONResponse(formatter.Writer, CLIResponse{
			Status: status,
			Data:   report,
			Error:  cliErr,
		}); err != nil {
			return err
		}
		if !report.Pass {
			return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", report.Name))
		}
		return nil
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Scenario: %s\n\n", report.Name)
	printTrace(w, report.Trace)
	fmt.Fprintln(w)

	if report.Pass {
		fmt.Fprintf(w, "✓ %s", report.Name)
		if report.Golden == "updated" {
			fmt.Fprint(w, " (golden updated)")
		}
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintf(w, "✗ %s\n", report.Name)
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", report.Name))
}

// printTrace renders one line per trace event.
func printTrace(w io.Writer, trace []harness.TraceEvent) {
	for _, e := range trace {
		fmt.Fprintf(w, "%4d  %-7s size=%d", e.Seq, e.Op, e.Size)
		if e.Inserts > 0 || e.Updates > 0 {
			fmt.Fprintf(w, " inserts=%d updates=%d", e.Inserts, e.Updates)
		}
		if e.EPS != nil {
			fmt.Fprintf(w, " eps=%d", *e.EPS)
		}
		if e.Removed != nil {
			fmt.Fprintf(w, " removed=%t", *e.Removed)
		}
		if e.Matches != nil {
			fmt.Fprintf(w, " matches=%d", *e.Matches)
		}
		if len(e.IDs) > 0 {
			fmt.Fprintf(w, " ids=%v", e.IDs)
		}
		fmt.Fprintln(w)
	}
}
