package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Samples returns every rate-sample row for a run in window order.
//
// Returns an empty slice (not nil) if the run has no samples.
func (j *Journal) Samples(ctx context.Context, token string) ([]Sample, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_token, seq, sampled_at, eps, total_records
		FROM samples
		WHERE run_token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var sampledAt int64
		if err := rows.Scan(&s.RunToken, &s.Seq, &sampledAt, &s.EPS, &s.TotalRecords); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.SampledAt = time.UnixMilli(sampledAt).UTC()
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	if samples == nil {
		samples = []Sample{}
	}

	return samples, nil
}

// Runs lists all recorded runs, most recently started first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT token, started_at, stopped_at, seed, profile
		FROM runs
		ORDER BY started_at DESC, token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// LastRun returns the most recently started run.
// Returns sql.ErrNoRows if the journal holds no runs.
func (j *Journal) LastRun(ctx context.Context) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT token, started_at, stopped_at, seed, profile
		FROM runs
		ORDER BY started_at DESC, token DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var startedAt int64
	var stoppedAt sql.NullInt64
	if err := s.Scan(&run.Token, &startedAt, &stoppedAt, &run.Seed, &run.Profile); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	if stoppedAt.Valid {
		run.StoppedAt = time.UnixMilli(stoppedAt.Int64).UTC()
	}
	return run, nil
}

// Summary aggregates one run's samples for reporting.
type Summary struct {
	Windows      int     // sampled 1-second windows
	TotalOps     int64   // sum of eps across windows
	MeanEPS      float64 // mean operations per second
	MaxEPS       int     // busiest window
	FinalRecords int     // store size at the last window
}

// SummarizeRun computes aggregate throughput figures for one run.
// A run with no samples yields a zero Summary, not an error.
func (j *Journal) SummarizeRun(ctx context.Context, token string) (Summary, error) {
	var sum Summary
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(eps), 0),
		       COALESCE(AVG(eps), 0),
		       COALESCE(MAX(eps), 0)
		FROM samples
		WHERE run_token = ?
	`, token).Scan(&sum.Windows, &sum.TotalOps, &sum.MeanEPS, &sum.MaxEPS)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize run: %w", err)
	}

	if sum.Windows == 0 {
		return sum, nil
	}

	// Final store size comes from the newest window, not MAX: a reset mid-run
	// can legitimately shrink the store.
	err = j.db.QueryRowContext(ctx, `
		SELECT total_records FROM samples
		WHERE run_token = ?
		ORDER BY seq DESC
		LIMIT 1
	`, token).Scan(&sum.FinalRecords)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize run: final records: %w", err)
	}

	return sum, nil
}
