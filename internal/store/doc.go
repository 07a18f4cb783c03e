// Package store holds the live record collection: an ordered, in-memory
// sequence addressed by position for updates and by id for deletes.
//
// The store has no locking. The engine's event loop is its only writer,
// and every read outside the loop goes through a published snapshot, so
// mutation and iteration never overlap.
//
// Ordering is the contract: Insert appends, ReplaceAt keeps position,
// DeleteByID closes the gap, and only ResortByValueDesc assigns a new
// ordering. FilterByTitle matches case-insensitively across scripts via
// x/text collation rather than ASCII folding.
package store
