package record

import (
	"fmt"
	"math/rand"
	"time"
)

// Value is drawn uniformly from [0, maxValue).
const maxValue = 100000

// Display layouts for time fields. UpdatedAt is a short clock reading
// meant for a table column; CreatedAt in the heavy payload keeps the
// full timestamp.
const (
	updatedAtLayout = "15:04:05"
	createdAtLayout = time.RFC3339
)

// Factory builds full records and their payloads from an injected random
// source and time source, so generation is reproducible under a fixed seed.
//
// Not safe for concurrent use: the rng is unsynchronized and the engine's
// single-writer loop is the only caller.
type Factory struct {
	rng *rand.Rand
	now func() time.Time
}

// NewFactory creates a factory over the given random source.
// A nil now falls back to time.Now.
func NewFactory(rng *rand.Rand, now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{rng: rng, now: now}
}

// Build assembles a complete record for the given identifier.
//
// Used for both inserts and updates. An update is a full replacement built
// against the existing record's id, never a field merge: title, value,
// timestamp, color, and payload are all freshly drawn.
func (f *Factory) Build(id int64, mode Mode) *Record {
	title := f.title()
	value := f.rng.Intn(maxValue)
	return &Record{
		ID:        id,
		Title:     title,
		Value:     value,
		UpdatedAt: f.now().Format(updatedAtLayout),
		ColorTag:  f.colorTag(),
		Payload:   f.BuildPayload(mode, id, title, value),
	}
}

// BuildPayload builds the domain body for a record.
//
// The heavy shape's counts are fixed (VectorCount vectors of
// VectorCoordCount coords, TrailStepCount steps of TrailPointCount points,
// HistoryEntryCount history entries, MetaTagCount tags); randomness governs
// only magnitudes, coordinates, flags, and string suffixes.
func (f *Factory) BuildPayload(mode Mode, id int64, title string, value int) Payload {
	if mode == ModeHeavy {
		return f.heavyPayload(id, title, value)
	}
	return f.simplePayload(id, title, value)
}

func (f *Factory) simplePayload(id int64, title string, value int) SimplePayload {
	status := StatusEven
	if value%2 != 0 {
		status = StatusOdd
	}
	return SimplePayload{
		ID:     id,
		Title:  title,
		Value:  value,
		Label:  fmt.Sprintf("item-%d", id),
		Status: status,
	}
}

func (f *Factory) heavyPayload(id int64, title string, value int) HeavyPayload {
	now := f.now()
	p := HeavyPayload{
		ID:        id,
		Title:     title,
		Value:     value,
		Label:     fmt.Sprintf("item-%d", id),
		CreatedAt: now.Format(createdAtLayout),
		Meta: Meta{
			Origin:   fmt.Sprintf("gen-%04d", f.rng.Intn(10000)),
			Checksum: fmt.Sprintf("%08x", f.rng.Uint32()),
			Tags:     make([]string, MetaTagCount),
		},
		Vectors: make([]Vector, VectorCount),
		Trail:   make([]TrailStep, TrailStepCount),
		History: make([]HistoryEntry, HistoryEntryCount),
	}

	for i := range p.Meta.Tags {
		p.Meta.Tags[i] = fmt.Sprintf("tag-%d-%03d", i, f.rng.Intn(1000))
	}

	for i := range p.Vectors {
		v := Vector{
			Index:     i,
			Magnitude: f.rng.Float64() * 1000,
			Coords:    make([]float64, VectorCoordCount),
		}
		for j := range v.Coords {
			v.Coords[j] = f.rng.Float64()*200 - 100
		}
		p.Vectors[i] = v
	}

	for i := range p.Trail {
		step := TrailStep{
			Step: i,
			Note: fmt.Sprintf("step-%d-%04d", i, f.rng.Intn(10000)),
			Flags: TrailFlags{
				Active:   f.rng.Float64() < 0.6,
				Critical: f.rng.Float64() < 0.1,
			},
			Points: make([]TrailPoint, TrailPointCount),
		}
		for j := range step.Points {
			step.Points[j] = TrailPoint{
				PointIndex: j,
				X:          f.rng.Float64() * 100,
				Y:          f.rng.Float64() * 100,
				Weight:     f.rng.Float64(),
			}
		}
		p.Trail[i] = step
	}

	// History walks backwards from now in one-second steps.
	ts := now.UnixMilli()
	for i := range p.History {
		p.History[i] = HistoryEntry{
			Index:     i,
			Timestamp: ts - int64(i)*1000,
			Value:     f.rng.Float64() * 100,
			Delta:     f.rng.Float64()*20 - 10,
		}
	}

	return p
}

// title produces a randomized 3-letter plus 4-digit code such as "ABZ-1209".
func (f *Factory) title() string {
	var b [8]byte
	for i := 0; i < 3; i++ {
		b[i] = byte('A' + f.rng.Intn(26))
	}
	b[3] = '-'
	for i := 4; i < 8; i++ {
		b[i] = byte('0' + f.rng.Intn(10))
	}
	return string(b[:])
}

// colorTag picks a random hue at high saturation and lightness so rows
// stay legible: hue [0,360), saturation [65,85], lightness [75,87].
func (f *Factory) colorTag() string {
	h := f.rng.Intn(360)
	s := 65 + f.rng.Intn(21)
	l := 75 + f.rng.Intn(13)
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", h, s, l)
}
