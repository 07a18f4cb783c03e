package journal

import (
	"context"
	"fmt"
	"time"
)

// Run is the lifecycle row for one engine run.
type Run struct {
	Token     string
	StartedAt time.Time
	StoppedAt time.Time // zero until EndRun
	Seed      int64
	Profile   string
}

// Sample is one rate-sample window: the events-per-second figure the
// counter reported and the store size at sampling time.
type Sample struct {
	RunToken     string
	Seq          int64
	SampledAt    time.Time
	EPS          int
	TotalRecords int
}

// BeginRun inserts the lifecycle row for a run.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - writing the same
// run twice is silently ignored.
func (j *Journal) BeginRun(ctx context.Context, run Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (token, started_at, seed, profile)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		run.Token,
		run.StartedAt.UnixMilli(),
		run.Seed,
		run.Profile,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// EndRun stamps the run's stop time. An unknown token updates nothing and
// is not an error.
func (j *Journal) EndRun(ctx context.Context, token string, stoppedAt time.Time) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE runs SET stopped_at = ? WHERE token = ?
	`, stoppedAt.UnixMilli(), token)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	return nil
}

// WriteSample inserts one rate-sample row.
// Uses ON CONFLICT(run_token, seq) DO NOTHING for idempotency - each
// window is recorded at most once per run.
//
// Note: The run referenced by RunToken must exist (foreign key constraint).
func (j *Journal) WriteSample(ctx context.Context, s Sample) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO samples (run_token, seq, sampled_at, eps, total_records)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_token, seq) DO NOTHING
	`,
		s.RunToken,
		s.Seq,
		s.SampledAt.UnixMilli(),
		s.EPS,
		s.TotalRecords,
	)
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}
