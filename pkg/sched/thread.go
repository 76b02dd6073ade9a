// Package sched is a minimal stand-in for the thread/timer/scheduler
// contract a condition variable core consumes but does not own: thread
// identity, a CPU-affinity hint, preemption control, and timers.
//
// Go has no goroutine-local storage, so thread identity here is
// established explicitly by whoever calls condvar.Wait rather than
// recovered implicitly from the calling goroutine.
package sched

import (
	"runtime"
	"sync/atomic"
)

// Thread identifies a waiter for the purposes of wait morphing and CPU
// affinity grouping.
type Thread interface {
	// ID uniquely identifies this thread handle.
	ID() uint64
	// CurrentCPU returns the CPU this thread is presently assigned to.
	// It is used only as an affinity hint during broadcast wakeups;
	// nothing depends on it for correctness.
	CurrentCPU() int
}

// Scheduler produces Thread handles for callers that don't already
// carry one of their own. Production integrations that track real
// thread-to-CPU assignment can supply their own Scheduler via
// condvar.WithScheduler; the default below round-robins over
// runtime.GOMAXPROCS(0) CPUs, which is a reasonable affinity hint in a
// goroutine-scheduled runtime with no true CPU pinning.
type Scheduler interface {
	CurrentThread() Thread
}

type handle struct {
	id  uint64
	cpu int
}

func (h *handle) ID() uint64      { return h.id }
func (h *handle) CurrentCPU() int { return h.cpu }

// NewThread returns a Thread handle pinned to the given CPU. Used by
// callers (and tests) that already know their own affinity.
func NewThread(cpu int) Thread {
	return &handle{id: nextID(), cpu: cpu}
}

var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

type roundRobin struct {
	next uint64
}

func (r *roundRobin) CurrentThread() Thread {
	cpus := runtime.GOMAXPROCS(0)
	if cpus < 1 {
		cpus = 1
	}
	cpu := int(atomic.AddUint64(&r.next, 1)-1) % cpus
	return &handle{id: nextID(), cpu: cpu}
}

// DefaultScheduler is used by CurrentThread when no explicit Scheduler
// is configured on a Cond.
var DefaultScheduler Scheduler = &roundRobin{}

// CurrentThread returns a Thread handle for the calling goroutine using
// DefaultScheduler.
func CurrentThread() Thread {
	return DefaultScheduler.CurrentThread()
}
