package journal

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// beginTestRun writes a run row so sample inserts satisfy the foreign key.
func beginTestRun(t *testing.T, j *Journal, token string) {
	t.Helper()
	run := Run{
		Token:     token,
		StartedAt: time.UnixMilli(1700000000000).UTC(),
		Seed:      42,
		Profile:   "steady",
	}
	if err := j.BeginRun(context.Background(), run); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("journal file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		j.Close()
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	j := openTestJournal(t)

	if err := j.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := j.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	j := openTestJournal(t)

	var version int
	if err := j.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, expected %d", version, currentSchemaVersion)
	}
}

func TestWriteSample_RoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	beginTestRun(t, j, "run-1")

	want := []Sample{
		{RunToken: "run-1", Seq: 1, SampledAt: time.UnixMilli(1700000001000).UTC(), EPS: 200, TotalRecords: 200},
		{RunToken: "run-1", Seq: 2, SampledAt: time.UnixMilli(1700000002000).UTC(), EPS: 180, TotalRecords: 350},
		{RunToken: "run-1", Seq: 3, SampledAt: time.UnixMilli(1700000003000).UTC(), EPS: 0, TotalRecords: 350},
	}
	// Insert out of order; reads must come back ordered by seq.
	for _, i := range []int{2, 0, 1} {
		if err := j.WriteSample(ctx, want[i]); err != nil {
			t.Fatalf("WriteSample(seq=%d) failed: %v", want[i].Seq, err)
		}
	}

	got, err := j.Samples(ctx, "run-1")
	if err != nil {
		t.Fatalf("Samples() failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %+v, expected %+v", i, got[i], want[i])
		}
	}
}

func TestWriteSample_IdempotentPerWindow(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	beginTestRun(t, j, "run-1")

	s := Sample{RunToken: "run-1", Seq: 1, SampledAt: time.UnixMilli(1700000001000).UTC(), EPS: 50, TotalRecords: 50}
	if err := j.WriteSample(ctx, s); err != nil {
		t.Fatalf("first WriteSample() failed: %v", err)
	}

	// Same window again: silently ignored, first write wins.
	s.EPS = 999
	if err := j.WriteSample(ctx, s); err != nil {
		t.Fatalf("duplicate WriteSample() failed: %v", err)
	}

	got, err := j.Samples(ctx, "run-1")
	if err != nil {
		t.Fatalf("Samples() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d samples, expected 1", len(got))
	}
	if got[0].EPS != 50 {
		t.Errorf("eps = %d, expected original 50", got[0].EPS)
	}
}

func TestWriteSample_UnknownRunFails(t *testing.T) {
	j := openTestJournal(t)

	s := Sample{RunToken: "no-such-run", Seq: 1, SampledAt: time.UnixMilli(1700000001000).UTC()}
	if err := j.WriteSample(context.Background(), s); err == nil {
		t.Error("expected foreign key error for sample without run")
	}
}

func TestBeginRun_Idempotent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	beginTestRun(t, j, "run-1")
	beginTestRun(t, j, "run-1")

	runs, err := j.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, expected 1", len(runs))
	}
}

func TestEndRun_StampsStopTime(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	beginTestRun(t, j, "run-1")

	stopped := time.UnixMilli(1700000060000).UTC()
	if err := j.EndRun(ctx, "run-1", stopped); err != nil {
		t.Fatalf("EndRun() failed: %v", err)
	}

	run, err := j.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun() failed: %v", err)
	}
	if !run.StoppedAt.Equal(stopped) {
		t.Errorf("stopped_at = %v, expected %v", run.StoppedAt, stopped)
	}
	if run.Seed != 42 || run.Profile != "steady" {
		t.Errorf("run fields lost: %+v", run)
	}
}

func TestSamples_EmptyRunReturnsEmptySlice(t *testing.T) {
	j := openTestJournal(t)

	got, err := j.Samples(context.Background(), "run-none")
	if err != nil {
		t.Fatalf("Samples() failed: %v", err)
	}
	if got == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("got %d samples, expected 0", len(got))
	}
}

func TestLastRun_NoRuns(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.LastRun(context.Background())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSummarizeRun(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	beginTestRun(t, j, "run-1")

	samples := []Sample{
		{RunToken: "run-1", Seq: 1, SampledAt: time.UnixMilli(1700000001000).UTC(), EPS: 10, TotalRecords: 10},
		{RunToken: "run-1", Seq: 2, SampledAt: time.UnixMilli(1700000002000).UTC(), EPS: 30, TotalRecords: 40},
		{RunToken: "run-1", Seq: 3, SampledAt: time.UnixMilli(1700000003000).UTC(), EPS: 20, TotalRecords: 25},
	}
	for _, s := range samples {
		if err := j.WriteSample(ctx, s); err != nil {
			t.Fatalf("WriteSample() failed: %v", err)
		}
	}

	sum, err := j.SummarizeRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("SummarizeRun() failed: %v", err)
	}

	if sum.Windows != 3 {
		t.Errorf("windows = %d, expected 3", sum.Windows)
	}
	if sum.TotalOps != 60 {
		t.Errorf("total ops = %d, expected 60", sum.TotalOps)
	}
	if sum.MeanEPS != 20 {
		t.Errorf("mean eps = %v, expected 20", sum.MeanEPS)
	}
	if sum.MaxEPS != 30 {
		t.Errorf("max eps = %d, expected 30", sum.MaxEPS)
	}
	// Last window's store size, not the maximum seen.
	if sum.FinalRecords != 25 {
		t.Errorf("final records = %d, expected 25", sum.FinalRecords)
	}
}

func TestSummarizeRun_NoSamples(t *testing.T) {
	j := openTestJournal(t)
	beginTestRun(t, j, "run-1")

	sum, err := j.SummarizeRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("SummarizeRun() failed: %v", err)
	}
	if sum != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", sum)
	}
}
