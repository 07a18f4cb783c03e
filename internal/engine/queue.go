package engine

import "sync"

// commandQueue is a thread-safe FIFO of consumer commands.
//
// The queue is unbounded so no caller ever blocks: the consumer API must
// never fail or stall, and a burst of control-panel input simply queues
// until the run loop drains it.
//
// Thread-safety is provided for external enqueuing (UI handlers, CLI
// signal paths) while the run loop dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the run loop.
type commandQueue struct {
	mu     sync.Mutex
	cmds   []func()
	signal chan struct{} // Signals command availability (buffered, size 1)
}

// newCommandQueue creates an empty command queue.
func newCommandQueue() *commandQueue {
	return &commandQueue{
		cmds:   make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a command to the back of the queue.
// Thread-safe: may be called from any goroutine. Commands enqueued before
// the run loop starts execute, in order, when it does.
func (q *commandQueue) Enqueue(fn func()) {
	q.mu.Lock()
	q.cmds = append(q.cmds, fn)
	q.mu.Unlock()

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryDequeue attempts to dequeue without blocking.
// Returns (nil, false) if the queue is empty.
func (q *commandQueue) TryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.cmds) == 0 {
		return nil, false
	}

	fn := q.cmds[0]

	// Nil out the slot so the dequeued closure and anything it captures
	// can be collected; the underlying array otherwise retains it until
	// reallocation.
	q.cmds[0] = nil

	if len(q.cmds) == 1 {
		// Last element - reset to empty slice with original capacity
		q.cmds = q.cmds[:0]
	} else {
		q.cmds = q.cmds[1:]
	}

	return fn, true
}

// Wait returns a channel that signals when commands may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}
