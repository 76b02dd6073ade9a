package sched

import "time"

// Timer arms an absolute-time wakeup. It wraps time.Timer rather than
// time.AfterFunc because the wait path needs to select on the fire
// channel alongside a wait record's done channel (see
// waitrecord.Record.Wait).
type Timer struct {
	t *time.Timer
}

// NewTimer arms a timer to fire at the given absolute time. A zero
// time.Time means "no timeout" and NewTimer returns nil.
func NewTimer(expiration time.Time) *Timer {
	if expiration.IsZero() {
		return nil
	}
	d := time.Until(expiration)
	if d < 0 {
		d = 0
	}
	return &Timer{t: time.NewTimer(d)}
}

// C returns the fire channel, or nil if t is nil (no timeout armed).
// A nil channel blocks forever in a select, which is exactly the "no
// timer" behavior this needs.
func (t *Timer) C() <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.t.C
}

// Stop cancels the timer. Safe to call on a nil Timer.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.t.Stop()
}
