package sched

import "sync/atomic"

// preemptDepth is a nestable counter standing in for a kernel's
// preempt_disable()/preempt_enable(). Disabling preemption across the
// release of the user mutex and the release of the condvar's internal
// mutex is strictly an optimization (it avoids a context switch
// between the two unlocks) and is never required for correctness here:
// Go's goroutine scheduler gives no caller control over preemption
// points fine-grained enough to matter, so these are bookkeeping
// no-ops kept for fidelity to the wait path's documented step sequence.
// They are not part of the Scheduler interface; a custom Scheduler does
// not change them.
var preemptDepth int32

// PreemptDisable increments the nesting depth. No-op beyond bookkeeping.
func PreemptDisable() {
	atomic.AddInt32(&preemptDepth, 1)
}

// PreemptEnable decrements the nesting depth. No-op beyond bookkeeping.
func PreemptEnable() {
	atomic.AddInt32(&preemptDepth, -1)
}

// PreemptDepth reports the current nesting depth, exposed for tests
// that want to assert PreemptDisable/PreemptEnable calls stay balanced.
func PreemptDepth() int32 {
	return atomic.LoadInt32(&preemptDepth)
}
