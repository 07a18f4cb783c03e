package store

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/roach88/churn/internal/record"
)

// Store is the ordered, id-addressable collection of live records.
//
// Ids are unique across live records and insertion order is preserved
// except across an explicit resort. The engine's single-writer loop owns
// the store; there is no internal locking, and readers only ever see
// snapshots the engine publishes after a mutation completes.
type Store struct {
	records []*record.Record
	matcher *search.Matcher
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make([]*record.Record, 0, 64),
		matcher: search.New(language.Und, search.IgnoreCase),
	}
}

// Len returns the number of live records.
func (s *Store) Len() int {
	return len(s.records)
}

// At returns the record at position i.
//
// The index must come from the same mutation unit that read Len: the store
// is only ever mutated from the single-writer loop, so a just-read index
// cannot go stale.
func (s *Store) At(i int) *record.Record {
	return s.records[i]
}

// Insert appends a record.
func (s *Store) Insert(r *record.Record) {
	s.records = append(s.records, r)
}

// ReplaceAt swaps the record at position i, preserving its position.
func (s *Store) ReplaceAt(i int, r *record.Record) {
	s.records[i] = r
}

// DeleteByID removes the record with the given id, preserving the order of
// the rest. An absent id is a no-op; the returned bool reports whether a
// record was removed.
func (s *Store) DeleteByID(id int64) bool {
	for i, r := range s.records {
		if r.ID == id {
			copy(s.records[i:], s.records[i+1:])
			// Nil out the vacated tail slot so the record can be collected.
			s.records[len(s.records)-1] = nil
			s.records = s.records[:len(s.records)-1]
			return true
		}
	}
	return false
}

// ResortByValueDesc reorders the store by value descending. The sort is
// stable: records with equal values keep their prior relative order, so
// applying it twice yields the same ordering as once.
func (s *Store) ResortByValueDesc() {
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].Value > s.records[j].Value
	})
}

// Reset drops every record.
func (s *Store) Reset() {
	s.records = nil
}

// Snapshot returns the records in store order. The slice is a copy and
// safe to hold across later mutations; the records themselves are shared
// and immutable once built.
func (s *Store) Snapshot() []*record.Record {
	out := make([]*record.Record, len(s.records))
	copy(out, s.records)
	return out
}
