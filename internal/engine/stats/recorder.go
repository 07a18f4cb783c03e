package stats

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var recorderSeq uint64

// Recorder publishes engine throughput counters via expvar. It keeps
// process-local metrics without external dependencies: totals per
// operation kind, the latest and busiest rate windows, and the live
// record count.
// maxSeriesWindows bounds the retained eps series. Older windows slide
// out, so a soak run keeps its most recent fifteen minutes.
const maxSeriesWindows = 900

type Recorder struct {
	name string

	mu         sync.Mutex
	ticks      int64
	inserts    int64
	updates    int64
	windows    int64
	operations int64
	lastEPS    int
	maxEPS     int
	records    int
	series     []int
}

// Snapshot captures a read-only view of the recorded metrics.
type Snapshot struct {
	Ticks      int64     `json:"ticks"`
	Inserts    int64     `json:"inserts_total"`
	Updates    int64     `json:"updates_total"`
	Operations int64     `json:"operations_total"`
	Windows    int64     `json:"windows"`
	LastEPS    int       `json:"last_eps"`
	MaxEPS     int       `json:"max_eps"`
	Records    int       `json:"records"`
	Series     []int     `json:"eps_series,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewRecorder constructs an expvar-backed recorder and publishes it under
// the supplied name. When name is empty, a unique identifier is generated;
// expvar panics on duplicate names, so tests should pass "".
func NewRecorder(name string) *Recorder {
	if name == "" {
		id := atomic.AddUint64(&recorderSeq, 1)
		name = fmt.Sprintf("churn_engine_%d", id)
	}
	rec := &Recorder{name: name}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *Recorder) Name() string {
	return r.name
}

// ObserveTick records one applied batch.
func (r *Recorder) ObserveTick(inserts, updates, records int) {
	r.mu.Lock()
	r.ticks++
	r.inserts += int64(inserts)
	r.updates += int64(updates)
	r.operations += int64(inserts + updates)
	r.records = records
	r.mu.Unlock()
}

// ObserveSample records one closed rate window.
func (r *Recorder) ObserveSample(eps, records int) {
	r.mu.Lock()
	r.windows++
	r.lastEPS = eps
	if eps > r.maxEPS {
		r.maxEPS = eps
	}
	r.records = records
	r.series = append(r.series, eps)
	if len(r.series) > maxSeriesWindows {
		r.series = r.series[len(r.series)-maxSeriesWindows:]
	}
	r.mu.Unlock()
}

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var series []int
	if len(r.series) > 0 {
		series = make([]int, len(r.series))
		copy(series, r.series)
	}

	return Snapshot{
		Ticks:      r.ticks,
		Inserts:    r.inserts,
		Updates:    r.updates,
		Operations: r.operations,
		Windows:    r.windows,
		LastEPS:    r.lastEPS,
		MaxEPS:     r.maxEPS,
		Records:    r.records,
		Series:     series,
		RecordedAt: time.Now().UTC(),
	}
}
