package engine

import (
	"math/rand"

	"github.com/roach88/churn/internal/record"
	"github.com/roach88/churn/internal/store"
)

// Mutator applies one batch of insert/update operations per generation tick.
//
// updatePercent is a per-unit independent probability, not an exact
// fraction: each unit rolls on its own, so any single batch may deviate
// while the long-run update ratio converges to updatePercent/100.
type Mutator struct {
	rng     *rand.Rand
	store   *store.Store
	alloc   *record.Allocator
	factory *record.Factory
	rate    *RateCounter
}

// NewMutator wires the mutation policy over its collaborators. The rng is
// shared with the record factory so one seed governs the whole stream.
func NewMutator(rng *rand.Rand, st *store.Store, alloc *record.Allocator, factory *record.Factory, rate *RateCounter) *Mutator {
	return &Mutator{
		rng:     rng,
		store:   st,
		alloc:   alloc,
		factory: factory,
		rate:    rate,
	}
}

// BatchResult reports what one batch did.
type BatchResult struct {
	Inserts int
	Updates int
}

// Operations returns the total operations performed, which always equals
// the batch size regardless of the insert/update split.
func (r BatchResult) Operations() int {
	return r.Inserts + r.Updates
}

// ApplyBatch performs batchSize operations against the store.
//
// Each unit rolls uniform [0,100) against updatePercent. An update picks a
// target uniformly among current records and replaces it wholesale under
// its existing id; otherwise a new record is inserted under a fresh id. An
// empty store forces insertion regardless of updatePercent.
//
// The store size is re-read on every unit, so an update later in the batch
// can target a record inserted earlier in the same batch. Generation is
// strictly in-order; size grows monotonically within the loop.
//
// The rate counter is credited with batchSize operations, not the net size
// delta.
func (m *Mutator) ApplyBatch(batchSize, updatePercent int, mode record.Mode) BatchResult {
	var res BatchResult
	for i := 0; i < batchSize; i++ {
		if m.store.Len() > 0 && m.rng.Intn(100) < updatePercent {
			idx := m.rng.Intn(m.store.Len())
			existing := m.store.At(idx)
			m.store.ReplaceAt(idx, m.factory.Build(existing.ID, mode))
			res.Updates++
		} else {
			m.store.Insert(m.factory.Build(m.alloc.Next(), mode))
			res.Inserts++
		}
	}
	m.rate.RecordProduced(batchSize)
	return res
}
