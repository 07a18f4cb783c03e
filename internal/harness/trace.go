package harness

// maxTraceIDs bounds how large a store still gets its ids listed in the
// trace. Beyond this only the size is recorded, keeping goldens readable.
const maxTraceIDs = 16

// TraceEvent records the structural outcome of one step: sizes, counts,
// and ids, never generated values, so a trace is stable wherever the
// insert/update split is.
type TraceEvent struct {
	Seq     int     `json:"seq"`
	Op      string  `json:"op"`
	Size    int     `json:"size"`
	Inserts int     `json:"inserts,omitempty"`
	Updates int     `json:"updates,omitempty"`
	EPS     *int    `json:"eps,omitempty"`
	Removed *bool   `json:"removed,omitempty"`
	Matches *int    `json:"matches,omitempty"`
	IDs     []int64 `json:"ids,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: true when every expectation holds.
	Pass bool `json:"pass"`

	// Trace contains one event per executed operation, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalSize is the record count after the last step.
	FinalSize int `json:"final_size"`

	// IDs is the final id sequence in store order, when small enough to
	// list.
	IDs []int64 `json:"ids,omitempty"`

	// LastRate is the most recently closed rate window.
	LastRate int `json:"last_rate"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends a trace event, stamping its sequence number.
func (r *Result) addEvent(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}

// traceIDs lists ids for the trace when the store is small enough.
func traceIDs(ids []int64) []int64 {
	if len(ids) == 0 || len(ids) > maxTraceIDs {
		return nil
	}
	return ids
}
