package record

// Mode selects which payload shape the factories produce.
type Mode string

const (
	// ModeSimple produces the flat five-field payload.
	ModeSimple Mode = "simple"
	// ModeHeavy produces the deeply nested payload with fixed structural counts.
	ModeHeavy Mode = "heavy"
)

// ParseMode maps arbitrary input to a valid Mode.
// Unknown or empty input falls back to ModeSimple; configuration input
// never fails (see SetPayloadMode on the engine).
func ParseMode(s string) Mode {
	if Mode(s) == ModeHeavy {
		return ModeHeavy
	}
	return ModeSimple
}

// Record is one row of the generated stream.
//
// ID is immutable once assigned. An update replaces every other field
// wholesale with freshly generated values; there is no partial mutation.
// Records are treated as immutable after construction: the engine swaps
// pointers instead of mutating fields, so a published snapshot stays valid.
type Record struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Value     int     `json:"value"`
	UpdatedAt string  `json:"updatedAt"`
	ColorTag  string  `json:"colorTag"`
	Payload   Payload `json:"payload"`
}

// Payload is the record's domain body in one of two fixed shapes.
type Payload interface {
	Kind() Mode
}

// Status values derived from Value mod 2.
const (
	StatusEven = "even"
	StatusOdd  = "odd"
)

// Heavy payload structural constants. These counts define the payload-weight
// contract consumers size their rendering cost against, so they are fixed;
// only the contents vary per record.
const (
	MetaTagCount      = 4
	VectorCount       = 12
	VectorCoordCount  = 8
	TrailStepCount    = 6
	TrailPointCount   = 5
	HistoryEntryCount = 4
)

// SimplePayload is the shallow shape: one flat object per record.
type SimplePayload struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Value  int    `json:"value"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// Kind implements Payload.
func (SimplePayload) Kind() Mode { return ModeSimple }

// HeavyPayload is the nested shape: 12 vectors of 8 coords, 6 trail steps
// of 5 points, 4 history entries, 4 meta tags.
type HeavyPayload struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Value     int            `json:"value"`
	Label     string         `json:"label"`
	CreatedAt string         `json:"createdAt"`
	Meta      Meta           `json:"meta"`
	Vectors   []Vector       `json:"vectors"`
	Trail     []TrailStep    `json:"trail"`
	History   []HistoryEntry `json:"history"`
}

// Kind implements Payload.
func (HeavyPayload) Kind() Mode { return ModeHeavy }

// Meta carries record provenance for the heavy shape.
type Meta struct {
	Origin   string   `json:"origin"`
	Checksum string   `json:"checksum"`
	Tags     []string `json:"tags"`
}

// Vector is one of the 12 numeric vectors in a heavy payload.
type Vector struct {
	Index     int       `json:"index"`
	Magnitude float64   `json:"magnitude"`
	Coords    []float64 `json:"coords"`
}

// TrailStep is one of the 6 trail entries in a heavy payload.
type TrailStep struct {
	Step   int          `json:"step"`
	Note   string       `json:"note"`
	Flags  TrailFlags   `json:"flags"`
	Points []TrailPoint `json:"points"`
}

// TrailFlags marks a trail step. Active holds roughly 60% of the time,
// Critical roughly 10%.
type TrailFlags struct {
	Active   bool `json:"active"`
	Critical bool `json:"critical"`
}

// TrailPoint is one of the 5 points under a trail step.
type TrailPoint struct {
	PointIndex int     `json:"pointIndex"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Weight     float64 `json:"weight"`
}

// HistoryEntry is one of the 4 time-series samples in a heavy payload.
type HistoryEntry struct {
	Index     int     `json:"index"`
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Delta     float64 `json:"delta"`
}
