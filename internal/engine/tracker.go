package engine

import "sync"

// tracker counts outstanding work: actions waiting in the queue plus effects
// still running. It backs WaitIdle and per-flow quota cleanup.
//
// INVARIANTS:
//   - add is always called before the work becomes visible to the Run loop
//     or an effect goroutine, so the count never dips to zero mid-cascade
//   - idle is closed exactly when total drops to zero, and replaced with a
//     fresh channel when work starts again
//   - onFlowDone runs before idle is closed, so a waiter never sees a
//     finished flow's bookkeeping
type tracker struct {
	mu         sync.Mutex
	total      int
	flows      map[string]int
	idle       chan struct{}
	onFlowDone func(flow string)
}

func newTracker(onFlowDone func(flow string)) *tracker {
	idle := make(chan struct{})
	close(idle)
	return &tracker{
		flows:      make(map[string]int),
		idle:       idle,
		onFlowDone: onFlowDone,
	}
}

// add records one unit of work for flow.
func (t *tracker) add(flow string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total == 0 {
		t.idle = make(chan struct{})
	}
	t.total++
	t.flows[flow]++
}

// done finishes one unit of work for flow and reports whether the flow has
// nothing left outstanding.
func (t *tracker) done(flow string) (flowFinished bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total == 0 {
		return false
	}
	t.total--

	t.flows[flow]--
	if t.flows[flow] <= 0 {
		delete(t.flows, flow)
		flowFinished = true
		if t.onFlowDone != nil {
			t.onFlowDone(flow)
		}
	}

	if t.total == 0 {
		close(t.idle)
	}
	return flowFinished
}

// wait returns a channel closed when no work is outstanding.
func (t *tracker) wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle
}

// pending returns the outstanding unit count.
func (t *tracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
