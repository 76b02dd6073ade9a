// Package waitrecord implements the per-wait rendezvous object shared
// between a waiter and whichever party wakes it: a condvar signaller,
// a timeout, or a user mutex completing a wait-morphing handoff.
package waitrecord

import (
	"sync"

	"github.com/shanwei/osv/pkg/sched"
)

// Record represents one thread's intent to wait. It is allocated fresh
// for every call to condvar.Wait and must not be reused across calls:
// it lives for the entire duration of that one wait.
//
// next is owned by whichever waitqueue currently holds this record; it
// must only be read or written while that queue's guarding mutex is
// held. Record itself does not know it is linked into a list — that
// knowledge, and the mutation rights over next, belong to the queue
// holding it: first the condvar's waiter FIFO, then, once the condvar
// has unlinked it, a usermutex.Mutex handoff queue.
type Record struct {
	thread sched.Thread
	cpu    int

	next *Record

	once sync.Once
	done chan struct{}
}

// New allocates a wait record bound to the given thread. Passing nil
// for thread is permitted; the record then carries no identity beyond
// its wake channel, and its CPU hint is 0.
func New(thread sched.Thread) *Record {
	r := &Record{
		thread: thread,
		done:   make(chan struct{}),
	}
	if thread != nil {
		r.cpu = thread.CurrentCPU()
	}
	return r
}

// Thread returns the thread this record was allocated for.
func (r *Record) Thread() sched.Thread { return r.thread }

// CPU returns the CPU-affinity hint captured when this record was
// created, used only by WakeAll's affinity-grouping optimization.
func (r *Record) CPU() int { return r.cpu }

// Next returns the FIFO link. Only the waitqueue holding this record
// may call this meaningfully; see the package doc above.
func (r *Record) Next() *Record { return r.next }

// SetNext mutates the FIFO link. Only the waitqueue holding this record
// may call this.
func (r *Record) SetNext(n *Record) { r.next = n }

// Wait blocks the calling goroutine until Wake is called or timer
// fires, whichever happens first. A nil timer (or a timer with a nil
// channel) means no timeout: Wait then blocks until Wake.
func (r *Record) Wait(timer *sched.Timer) {
	select {
	case <-r.done:
	case <-timer.C():
	}
}

// Wake sets the woken flag and makes the owning thread's Wait return.
// Idempotent: a Record is only ever wakened once by the protocol, but
// Wake tolerates being called more than once without panicking.
func (r *Record) Wake() {
	r.once.Do(func() { close(r.done) })
}

// Woken reports whether Wake has been called on this record.
func (r *Record) Woken() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
