// Package usermutex implements the "user mutex" contract consumed by
// the condvar core: ordinary lock/unlock plus the two handoff
// primitives wait morphing depends on, send_lock and receive_lock.
package usermutex

import (
	"sync"

	"github.com/shanwei/osv/pkg/waitrecord"
)

// Mutex is a mutual-exclusion lock capable of transferring ownership
// directly to a designated waiter without that waiter re-contending.
//
// Two FIFOs are maintained under mu: handoff (records named by
// SendLock, awaiting their turn to own the mutex) and contenders
// (ordinary Lock callers). Unlock always drains handoff before
// contenders, so a wait-morphing recipient never loses the mutex to a
// freshly-arriving Lock() caller — the same direct-handoff, no-
// contention guarantee Go's own sync.Mutex applies in its starvation
// mode.
//
// A Record's FIFO link (see waitrecord.Record.Next/SetNext) is reused
// here to chain the handoff queue: by the time SendLock is called on a
// record, the condvar has already unlinked it from its own waiter
// FIFO, so the link field is free to repurpose.
type Mutex struct {
	mu sync.Mutex

	locked bool

	handoffOldest, handoffNewest *waitrecord.Record
	contenders                   []chan struct{}
}

// New returns an unlocked Mutex ready for use.
func New() *Mutex {
	return &Mutex{}
}

// Lock acquires the mutex, blocking until it is available. A caller
// that wins only after a SendLock handoff chain drains ahead of it is
// an ordinary contender like any other; it is never given priority
// over records already queued for handoff.
func (m *Mutex) Lock() {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	m.contenders = append(m.contenders, ch)
	m.mu.Unlock()
	<-ch
}

// TryLock acquires the mutex only if it is immediately free.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Unlock releases the mutex. If one or more handoffs are pending
// (SendLock was called while this lock was held), the oldest pending
// record is given ownership directly — the lock stays "locked" the
// entire time, it simply changes hands without ever becoming globally
// observable as free. Only once the handoff queue is empty do ordinary
// Lock contenders get a turn, and only once both queues are empty does
// the mutex actually become free.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	if w := m.popHandoff(); w != nil {
		m.mu.Unlock()
		w.Wake()
		return
	}
	if len(m.contenders) > 0 {
		ch := m.contenders[0]
		m.contenders = m.contenders[1:]
		m.mu.Unlock()
		close(ch)
		return
	}
	m.locked = false
	m.mu.Unlock()
}

// SendLock atomically transfers ownership of this mutex to the thread
// named by w, without that thread contending for it. The caller must
// hold the mutex (or, as with a condvar signaller acting on a remembered
// user mutex, an equivalent right to hand it off — see condvar.cc's
// "the waiter that released it nominated this mutex for morphing")
// when calling SendLock. If the mutex happens to already be free, the
// transfer lands immediately and w is woken now; otherwise w is queued
// and is woken in turn by a future Unlock.
func (m *Mutex) SendLock(w *waitrecord.Record) {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		w.Wake()
		return
	}
	m.pushHandoff(w)
	m.mu.Unlock()
}

// ReceiveLock is invoked by a recipient thread after being handed the
// lock by SendLock, to update any bookkeeping asserting ownership. It
// never blocks: by the time a recipient observes Woken() == true, the
// mutex already considers it the owner.
func (m *Mutex) ReceiveLock() {}

func (m *Mutex) pushHandoff(w *waitrecord.Record) {
	w.SetNext(nil)
	if m.handoffNewest == nil {
		m.handoffOldest = w
	} else {
		m.handoffNewest.SetNext(w)
	}
	m.handoffNewest = w
}

func (m *Mutex) popHandoff() *waitrecord.Record {
	w := m.handoffOldest
	if w == nil {
		return nil
	}
	m.handoffOldest = w.Next()
	if m.handoffOldest == nil {
		m.handoffNewest = nil
	}
	w.SetNext(nil)
	return w
}
