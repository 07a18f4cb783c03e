package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/churn/internal/engine"
	"github.com/roach88/churn/internal/engine/stats"
	"github.com/roach88/churn/internal/journal"
	"github.com/roach88/churn/internal/profile"
)

// BenchOptions holds flags for the bench command.
type BenchOptions struct {
	*RootOptions
	Profile  string
	Duration time.Duration
	Journal  string
	Seed     int64

	// TokenGenerator allows overriding the run token generator (for testing).
	TokenGenerator engine.TokenGenerator
}

// JournalSummary reports what the telemetry journal recorded for the run.
type JournalSummary struct {
	Path         string  `json:"path"`
	Windows      int     `json:"windows"`
	TotalOps     int64   `json:"total_ops"`
	MeanEPS      float64 `json:"mean_eps"`
	MaxEPS       int     `json:"max_eps"`
	FinalRecords int     `json:"final_records"`
}

// BenchReport is a RunReport plus the persisted journal figures.
type BenchReport struct {
	RunReport
	Journal *JournalSummary `json:"journal,omitempty"`
}

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure throughput for a profile",
		Long: `Run a profile for a fixed duration and report throughput.

Unlike run, bench stays quiet while the engine works and prints a
summary table at the end: tick and operation totals, mean and peak
events per second, and the final store size. With --journal the rate
samples are also persisted and the journal's own aggregates are
reported alongside.

Examples:
  churn bench --profile profiles/steady.cue
  churn bench --profile profiles/burst.cue --duration 30s --journal ./bench.db
  churn bench --profile profiles/soak.cue --seed 42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "path to a CUE profile (required)")
	_ = cmd.MarkFlagRequired("profile")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 10*time.Second, "how long to run")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to a SQLite telemetry journal")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "generation seed (default: wall clock)")

	return cmd
}

func runBench(opts *BenchOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Duration <= 0 {
		return NewExitError(ExitCommandError, "duration must be positive")
	}

	prof, err := profile.Load(opts.Profile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load profile", err)
	}
	cfg := prof.Config()
	cfg.Running = true

	seed := opts.Seed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	recorder := stats.NewRecorder("")
	engOpts := []engine.Option{
		engine.WithStats(recorder),
		engine.WithProfileName(prof.Name),
	}
	if opts.TokenGenerator != nil {
		engOpts = append(engOpts, engine.WithTokenGenerator(opts.TokenGenerator))
	}

	var jnl *journal.Journal
	if opts.Journal != "" {
		jnl, err = journal.Open(opts.Journal)
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

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(parentCtx, opts.Duration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping bench early", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	formatter.VerboseLog("benchmarking %s for %s (seed %d)", prof.Name, opts.Duration, seed)

	started := time.Now()
	err = eng.Run(ctx)
	elapsed := time.Since(started)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	report := BenchReport{
		RunReport: buildRunReport(eng, recorder, prof.Name, seed, elapsed),
	}
	if jnl != nil {
		summary, err := jnl.SummarizeRun(context.Background(), eng.Token())
		if err != nil {
			slog.Warn("journal summary failed", "error", err)
		} else {
			report.Journal = &JournalSummary{
				Path:         opts.Journal,
				Windows:      summary.Windows,
				TotalOps:     summary.TotalOps,
				MeanEPS:      summary.MeanEPS,
				MaxEPS:       summary.MaxEPS,
				FinalRecords: summary.FinalRecords,
			}
		}
	}

	return outputBenchReport(formatter, report)
}

// outputBenchReport writes the summary table in the configured format.
func outputBenchReport(formatter *OutputFormatter, report BenchReport) error {
	if formatter.Format == "json" {
		return writeJSONResponse(formatter.Writer, CLIResponse{
			Status:   "ok",
			Data:     report,
			RunToken: report.Token,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Benchmark %s (run %s)\n", report.Profile, report.Token)
	fmt.Fprintf(w, "  duration    %s\n", report.Duration)
	fmt.Fprintf(w, "  seed        %d\n", report.Seed)
	fmt.Fprintf(w, "  ticks       %d\n", report.Ticks)
	fmt.Fprintf(w, "  operations  %d (%d inserts, %d updates)\n",
		report.Operations, report.Inserts, report.Updates)
	fmt.Fprintf(w, "  mean eps    %.1f\n", report.MeanEPS)
	fmt.Fprintf(w, "  max eps     %d\n", report.MaxEPS)
	fmt.Fprintf(w, "  records     %d\n", report.Records)
	printEPSSeries(w, report.EPSSeries, report.MaxEPS)

	if report.Journal != nil {
		fmt.Fprintf(w, "Journal %s\n", report.Journal.Path)
		fmt.Fprintf(w, "  windows     %d\n", report.Journal.Windows)
		fmt.Fprintf(w, "  total ops   %d\n", report.Journal.TotalOps)
		fmt.Fprintf(w, "  mean eps    %.1f\n", report.Journal.MeanEPS)
		fmt.Fprintf(w, "  max eps     %d\n", report.Journal.MaxEPS)
		fmt.Fprintf(w, "  records     %d\n", report.Journal.FinalRecords)
	}
	return nil
}

// seriesBarWidth is the widest bar in the per-second table.
const seriesBarWidth = 40

// printEPSSeries renders one row per sampled window, with a bar scaled
// against the busiest window. Runs shorter than a second have no series.
func printEPSSeries(w io.Writer, series []int, maxEPS int) {
	if len(series) == 0 {
		return
	}
	fmt.Fprintln(w, "  per-second series")
	for i, eps := range series {
		width := 0
		if maxEPS > 0 {
			width = eps * seriesBarWidth / maxEPS
		}
		fmt.Fprintf(w, "    %3ds %6d  %s\n", i+1, eps, strings.Repeat("#", width))
	}
}
