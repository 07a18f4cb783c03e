package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/churn/internal/engine"
	"github.com/roach88/churn/internal/engine/stats"
	"github.com/roach88/churn/internal/journal"
	"github.com/roach88/churn/internal/profile"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Profile  string
	Duration time.Duration
	Journal  string
	Seed     int64

	// TokenGenerator allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator engine.TokenGenerator
}

// RunReport summarizes a finished run for output.
type RunReport struct {
	Token      string  `json:"token"`
	Profile    string  `json:"profile,omitempty"`
	Seed       int64   `json:"seed"`
	Duration   string  `json:"duration"`
	Ticks      int64   `json:"ticks"`
	Operations int64   `json:"operations"`
	Inserts    int64   `json:"inserts"`
	Updates    int64   `json:"updates"`
	MaxEPS     int     `json:"max_eps"`
	MeanEPS    float64 `json:"mean_eps"`
	Records    int     `json:"records"`
	EPSSeries  []int   `json:"eps_series,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the generation engine live",
		Long: `Run the generation engine against the system clock.

Without a profile the engine starts with defaults (100ms ticks, batches
of 10, 30% updates, simple payloads). Generation begins immediately and
a rate line is printed every second until the run is stopped with
Ctrl-C or the --duration bound elapses.

Examples:
  churn run
  churn run --profile profiles/steady.cue --journal ./telemetry.db
  churn run --duration 30s --seed 42 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "path to a CUE profile")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 = run until interrupted)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to a SQLite telemetry journal")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "generation seed (default: wall clock)")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	// Resolve the configuration. A profile pins every parameter; flags
	// fill in what remains.
	cfg := engine.DefaultConfig()
	profileName := ""
	duration := opts.Duration
	if opts.Profile != "" {
		prof, err := profile.Load(opts.Profile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load profile", err)
		}
		cfg = prof.Config()
		profileName = prof.Name
		if duration == 0 {
			duration = prof.Duration
		}
		formatter.VerboseLog("profile %s: interval=%s batch=%d update=%d%% payload=%s",
			prof.Name, prof.TickInterval, prof.BatchSize, prof.UpdatePercent, prof.PayloadMode)
	}
	cfg.Running = true

	seed := opts.Seed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	engOpts := []engine.Option{}
	if opts.TokenGenerator != nil {
		engOpts = append(engOpts, engine.WithTokenGenerator(opts.TokenGenerator))
	}
	if profileName != "" {
		engOpts = append(engOpts, engine.WithProfileName(profileName))
	}

	// Unnamed recorder: expvar panics on duplicate names, and tests run
	// this command repeatedly in one process.
	recorder := stats.NewRecorder("")
	engOpts = append(engOpts, engine.WithStats(recorder))

	if opts.Journal != "" {
		slog.Info("opening journal", "path", opts.Journal)
		jnl, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := jnl.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithJournal(jnl))
	}

	eng := engine.New(cfg, seed, engOpts...)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if duration > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, duration)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// The rate printer shares the output writer with the final report,
	// so the report waits for it to drain.
	rateDone := make(chan struct{})
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "Engine started. Press Ctrl-C to stop.")
		go func() {
			defer close(rateDone)
			printRateLines(ctx, eng, formatter)
		}()
	} else {
		close(rateDone)
	}

	started := time.Now()
	err := eng.Run(ctx)
	elapsed := time.Since(started)
	cancel()
	<-rateDone
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	report := buildRunReport(eng, recorder, profileName, seed, elapsed)
	return outputRunReport(formatter, report)
}

// printRateLines prints one throughput line per second until ctx ends.
// Text format only; in JSON mode the report is the sole stdout output.
func printRateLines(ctx context.Context, eng *engine.Engine, formatter *OutputFormatter) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(formatter.Writer, "rate %5d/s   records %d\n",
				eng.LastSecondRate(), eng.TotalCount())
		}
	}
}

// buildRunReport assembles the end-of-run summary from the recorder.
func buildRunReport(eng *engine.Engine, recorder *stats.Recorder, profileName string, seed int64, elapsed time.Duration) RunReport {
	snap := recorder.Snapshot()

	meanEPS := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		meanEPS = float64(snap.Operations) / secs
	}

	return RunReport{
		Token:      eng.Token(),
		Profile:    profileName,
		Seed:       seed,
		Duration:   elapsed.Round(time.Millisecond).String(),
		Ticks:      snap.Ticks,
		Operations: snap.Operations,
		Inserts:    snap.Inserts,
		Updates:    snap.Updates,
		MaxEPS:     snap.MaxEPS,
		MeanEPS:    meanEPS,
		Records:    snap.Records,
		EPSSeries:  snap.Series,
	}
}

// outputRunReport writes the final summary in the configured format.
func outputRunReport(formatter *OutputFormatter, report RunReport) error {
	if formatter.Format == "json" {
		return writeJSONResponse(formatter.Writer, CLIResponse{
			Status:   "ok",
			Data:     report,
			RunToken: report.Token,
		})
	}

	fmt.Fprintf(formatter.Writer, "Run %s stopped after %s\n", report.Token, report.Duration)
	if report.Profile != "" {
		fmt.Fprintf(formatter.Writer, "  profile     %s\n", report.Profile)
	}
	fmt.Fprintf(formatter.Writer, "  seed        %d\n", report.Seed)
	fmt.Fprintf(formatter.Writer, "  ticks       %d\n", report.Ticks)
	fmt.Fprintf(formatter.Writer, "  operations  %d (%d inserts, %d updates)\n",
		report.Operations, report.Inserts, report.Updates)
	fmt.Fprintf(formatter.Writer, "  mean eps    %.1f\n", report.MeanEPS)
	fmt.Fprintf(formatter.Writer, "  max eps     %d\n", report.MaxEPS)
	fmt.Fprintf(formatter.Writer, "  records     %d\n", report.Records)
	return nil
}
