package engine

import (
	"sync"

	"github.com/roach88/fmdesk/internal/action"
)

// queued is one action waiting for the reducer.
//
// cause and effect are set when an effect emitted the action; they are copied
// into the logged envelope so traces can show which effect produced what.
type queued struct {
	action action.Action
	flow   string
	cause  string
	effect string
}

// actionQueue is a thread-safe FIFO queue for dispatched actions.
//
// The queue is unbounded so effects can emit arbitrarily many follow-up
// actions without blocking on the Run loop.
//
// Thread-safety is provided for Dispatch (any goroutine) and effect
// goroutines while the Engine's Run loop dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type actionQueue struct {
	mu     sync.Mutex
	items  []queued
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

// newActionQueue creates an empty action queue.
func newActionQueue() *actionQueue {
	return &actionQueue{
		items:  make([]queued, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *actionQueue) Enqueue(item queued) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (queued{}, false) if the queue is empty.
func (q *actionQueue) TryDequeue() (queued, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return queued{}, false
	}

	item := q.items[0]

	// CRITICAL: Clear the slot so the backing array does not keep the
	// action alive after it has been reduced.
	q.items[0] = queued{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return item, true
}

// Wait returns a channel that signals when items may be available.
// The channel is closed once the queue is closed.
func (q *actionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drained reports whether the queue is closed and holds nothing.
func (q *actionQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Close signals that no more items will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
