package store

import (
	"github.com/roach88/churn/internal/record"
)

// FilterByTitle returns the subsequence of records whose titles contain
// text, matched case-insensitively, preserving store order. The result is
// a view: record pointers are shared, nothing is mutated. Empty text
// returns the full store.
func (s *Store) FilterByTitle(text string) []*record.Record {
	if text == "" {
		return s.Snapshot()
	}

	pat := s.matcher.CompileString(text)
	out := make([]*record.Record, 0, len(s.records))
	for _, r := range s.records {
		if start, _ := pat.IndexString(r.Title); start >= 0 {
			out = append(out, r)
		}
	}
	return out
}
