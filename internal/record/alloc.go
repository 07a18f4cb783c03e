package record

// Allocator is the monotonic identifier source for generated records.
//
// Identifiers are strictly increasing from 1 and never reused within one
// engine lifetime. Not safe for concurrent use: the engine's single-writer
// loop is the only caller.
type Allocator struct {
	next int64
}

// NewAllocator creates an allocator whose first issued id is 1.
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Next returns the current identifier and advances the counter.
func (a *Allocator) Next() int64 {
	id := a.next
	a.next++
	return id
}

// Peek returns the identifier the next call to Next would issue,
// without advancing.
func (a *Allocator) Peek() int64 {
	return a.next
}

// Reset restarts allocation at 1. Only an explicit engine reset calls this;
// after Reset the uniqueness guarantee holds for the new lifetime only.
func (a *Allocator) Reset() {
	a.next = 1
}
