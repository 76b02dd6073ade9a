package condvar

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shanwei/osv/pkg/sched"
)

// Option configures a Cond at construction time. Functional options are
// used instead of a config struct or file because this is an in-process
// library with no persisted state and no wire format — there is
// nothing here for a file-based configuration library to read.
type Option func(*Cond)

// WithWaitMorphing selects wait morphing (direct mutex handoff from
// signaller to waiter) over the classical wake-then-contend protocol.
// Classical is the default.
func WithWaitMorphing(enabled bool) Option {
	return func(c *Cond) {
		if enabled {
			c.mode = ModeMorphing
		} else {
			c.mode = ModeClassical
		}
	}
}

// WithAffinityGrouping toggles the CPU-affinity batching optimization
// in WakeAll. It only has an effect when wait morphing is enabled, and
// defaults to true since that is the morphing protocol's documented
// behavior.
func WithAffinityGrouping(enabled bool) Option {
	return func(c *Cond) { c.affinityGrouping = enabled }
}

// WithScheduler overrides the default round-robin sched.Scheduler used
// to mint a sched.Thread for each call to Wait. Production integrations
// with real CPU-affinity tracking should supply their own.
func WithScheduler(s sched.Scheduler) Option {
	return func(c *Cond) { c.scheduler = s }
}

// WithMetrics registers optional wait/handoff instruments (a waiters
// gauge and a handoffs counter) against reg. Metrics are left
// unregistered, and every recording call site is a no-op, if this
// option is never supplied.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Cond) { c.metrics = newMetrics(reg) }
}
