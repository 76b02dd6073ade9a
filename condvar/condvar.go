// Package condvar implements a condition variable tightly integrated
// with a cooperating handoff-capable mutex (pkg/usermutex): a FIFO of
// goroutines waiting on an external predicate, with Wait/WakeOne/WakeAll
// operations, and an optional wait-morphing optimization that transfers
// mutex ownership from signaller to waiter directly instead of waking
// the waiter to re-contend for it.
package condvar

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	log "unknwon.dev/clog/v2"

	"github.com/shanwei/osv/pkg/sched"
	"github.com/shanwei/osv/pkg/usermutex"
	"github.com/shanwei/osv/pkg/waitrecord"
)

// Mode selects between the classical wake-then-contend protocol and
// wait morphing.
type Mode int

const (
	// ModeClassical wakes a waiter's goroutine directly; the waiter
	// then re-acquires the user mutex like any other contender.
	ModeClassical Mode = iota
	// ModeMorphing hands the user mutex directly to the designated
	// waiter; the waiter wakes already holding it.
	ModeMorphing
)

// Outcome is the result of a call to Wait.
type Outcome int

const (
	// Woken means the wait completed via signal or handoff. The
	// caller's predicate is not guaranteed true — callers must always
	// re-check it in a loop.
	Woken Outcome = iota
	// TimedOut means the deadline passed before any signal claimed
	// this waiter.
	TimedOut
)

// Cond is a condition variable. The zero value is not ready for use;
// construct one with NewCond.
type Cond struct {
	// internal is the short-critical-section lock guarding the waiter
	// FIFO and the remembered user mutex. It is only ever used via
	// Lock/Unlock — never SendLock — since it plays no part in wait
	// morphing itself.
	internal usermutex.Mutex

	// oldest is read without internal held on the WakeOne/WakeAll fast
	// path, so it is an atomic pointer; newest is only ever touched
	// with internal held and needs no such treatment.
	oldest atomic.Pointer[waitrecord.Record]
	newest *waitrecord.Record

	mode             Mode
	affinityGrouping bool
	scheduler        sched.Scheduler

	// userMutex is the remembered user mutex for wait morphing,
	// populated by the first concurrent Wait and cleared once the FIFO
	// drains (see DESIGN.md for why clearing happens only then). Stays
	// nil for the entire lifetime of a ModeClassical Cond.
	userMutex *usermutex.Mutex

	metrics *metrics
}

// NewCond returns a ready-to-use Cond in ModeClassical with affinity
// grouping enabled (it only takes effect once ModeMorphing is
// selected) and the package default round-robin scheduler.
func NewCond(opts ...Option) *Cond {
	c := &Cond{
		mode:             ModeClassical,
		affinityGrouping: true,
		scheduler:        sched.DefaultScheduler,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wait releases m, which must be held on entry, and blocks the calling
// goroutine until c is signalled or deadline passes (a zero deadline
// means wait forever). On any return, m is held again. The calling
// goroutine's thread handle is minted by c's configured sched.Scheduler
// (see WithScheduler); callers that already track their own thread
// identity — including anything that cares about deterministic CPU
// affinity grouping during a broadcast — should use WaitAsThread instead.
func Wait(c *Cond, m *usermutex.Mutex, deadline time.Time) (Outcome, error) {
	return WaitAsThread(c, m, c.scheduler.CurrentThread(), deadline)
}

// WaitAsThread is Wait, but with the calling goroutine's thread handle
// supplied explicitly rather than minted from c's Scheduler. Go has no
// goroutine-local storage, so this is the only way to pin a specific
// sched.Thread (and hence CPU-affinity hint) to a particular call.
func WaitAsThread(c *Cond, m *usermutex.Mutex, thread sched.Thread, deadline time.Time) (Outcome, error) {
	wr := waitrecord.New(thread)

	c.internal.Lock()
	c.enqueue(wr)
	if c.mode == ModeMorphing {
		if c.userMutex != nil && c.userMutex != m {
			c.remove(wr) // never leave an abandoned record in the FIFO
			c.internal.Unlock()
			return Woken, errors.Wrapf(ErrMixedUserMutex, "thread %d", thread.ID())
		}
		c.userMutex = m
	}
	// Disable preemption only to avoid a context switch between the two
	// unlocks below; never required for correctness.
	sched.PreemptDisable()
	m.Unlock()
	c.internal.Unlock()
	sched.PreemptEnable()
	c.metrics.enqueued()
	log.Trace("condvar: wait enqueued thread=%d morphing=%v", thread.ID(), c.mode == ModeMorphing)

	timer := sched.NewTimer(deadline)
	wr.Wait(timer)
	timer.Stop()

	if wr.Woken() {
		return c.finishWoken(m), nil
	}

	// The timer fired. Only FIFO membership, checked under the
	// internal mutex, is authoritative about who won the race against
	// a concurrent signaller.
	c.internal.Lock()
	removed := c.remove(wr)
	if removed && c.mode == ModeMorphing && c.oldest.Load() == nil {
		c.userMutex = nil
	}
	c.internal.Unlock()

	if removed {
		c.metrics.dequeued()
		log.Trace("condvar: wait timed out thread=%d", thread.ID())
		m.Lock()
		return TimedOut, nil
	}

	// A signaller already detached wr; it will call Wake (directly, or
	// via the mutex completing a handoff) imminently. We must not
	// return — and must not let wr go out of scope — until that
	// happens, so wait again with no timer.
	log.Trace("condvar: wait lost timeout race to signaller thread=%d", thread.ID())
	wr.Wait(nil)
	return c.finishWoken(m), nil
}

func (c *Cond) finishWoken(m *usermutex.Mutex) Outcome {
	if c.mode == ModeMorphing {
		// The signaller's SendLock already made m's owner this
		// thread; no contention needed, only bookkeeping.
		m.ReceiveLock()
	} else {
		m.Lock()
	}
	return Woken
}

// WakeOne wakes the oldest waiter, if any. No-op if none is waiting.
func (c *Cond) WakeOne() {
	if c.oldest.Load() == nil {
		return
	}

	c.internal.Lock()
	wr := c.dequeueOldest()
	if wr == nil {
		c.internal.Unlock()
		return
	}
	if c.mode == ModeMorphing {
		c.userMutex.SendLock(wr)
		if c.oldest.Load() == nil {
			c.userMutex = nil
		}
		c.metrics.handoff("morphing")
	} else {
		wr.Wake()
		c.metrics.handoff("classical")
	}
	c.internal.Unlock()
	c.metrics.dequeued()
	log.Trace("condvar: wake_one")
}

// WakeAll wakes every waiter present at the moment it acquires the
// internal mutex. A later arrival is not woken. No-op if none is
// waiting.
func (c *Cond) WakeAll() {
	if c.oldest.Load() == nil {
		return
	}

	c.internal.Lock()
	head := c.detachAll()
	var userMutex *usermutex.Mutex
	if c.mode == ModeMorphing {
		userMutex = c.userMutex
		c.userMutex = nil
	}
	c.internal.Unlock()

	for wr := head; wr != nil; {
		next := wr.Next()
		c.metrics.dequeued()

		if c.mode != ModeMorphing {
			wr.Wake()
			c.metrics.handoff("classical")
			wr = next
			continue
		}

		userMutex.SendLock(wr)
		c.metrics.handoff("morphing")

		if c.affinityGrouping {
			next = c.spliceSameCPU(wr.CPU(), next, userMutex)
		}
		wr = next
	}
	log.Trace("condvar: wake_all")
}

// spliceSameCPU walks the remaining snapshot starting at head, and for
// every record whose CPU hint matches cpu, hands it off immediately and
// splices it out of the list: a batching optimization that hands off
// to every waiter likely to resume on the same CPU before moving on.
// It returns the new head of what remains.
func (c *Cond) spliceSameCPU(cpu int, head *waitrecord.Record, userMutex *usermutex.Mutex) *waitrecord.Record {
	var prev *waitrecord.Record
	for r := head; r != nil; {
		next := r.Next()
		if r.CPU() == cpu {
			userMutex.SendLock(r)
			c.metrics.handoff("morphing")
			c.metrics.dequeued()
			if r == head {
				head = next
			} else {
				prev.SetNext(next)
			}
		} else {
			prev = r
		}
		r = next
	}
	return head
}

func (c *Cond) enqueue(wr *waitrecord.Record) {
	wr.SetNext(nil)
	if c.oldest.Load() == nil {
		c.oldest.Store(wr)
	} else {
		c.newest.SetNext(wr)
	}
	c.newest = wr
}

func (c *Cond) dequeueOldest() *waitrecord.Record {
	wr := c.oldest.Load()
	if wr == nil {
		return nil
	}
	next := wr.Next()
	c.oldest.Store(next)
	if next == nil {
		c.newest = nil
	}
	wr.SetNext(nil)
	return wr
}

// remove unlinks target from the FIFO if present. O(n): the timeout
// path is the one place this condvar allows a traversal, because
// timeouts are rare and list sizes are bounded by waiter count.
func (c *Cond) remove(target *waitrecord.Record) bool {
	if c.oldest.Load() == target {
		next := target.Next()
		c.oldest.Store(next)
		if next == nil {
			c.newest = nil
		}
		target.SetNext(nil)
		return true
	}
	prev := c.oldest.Load()
	for prev != nil {
		if prev.Next() == target {
			next := target.Next()
			prev.SetNext(next)
			if next == nil {
				c.newest = prev
			}
			target.SetNext(nil)
			return true
		}
		prev = prev.Next()
	}
	return false
}

func (c *Cond) detachAll() *waitrecord.Record {
	head := c.oldest.Load()
	c.oldest.Store(nil)
	c.newest = nil
	return head
}
