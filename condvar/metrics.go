package condvar

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the optional Prometheus instruments a Cond reports
// against. Left nil (and every call site nil-checked) unless
// WithMetrics is supplied, so an unconfigured Cond pays nothing for
// this.
type metrics struct {
	waitersEnqueued prometheus.Gauge
	handoffsTotal   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		waitersEnqueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "condvar_waiters_enqueued",
			Help: "Current number of goroutines enqueued on a condvar, waiting to be woken.",
		}),
		handoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "condvar_wake_handoffs_total",
			Help: "Total wakeups performed by WakeOne/WakeAll, labeled by handoff mode.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.waitersEnqueued, m.handoffsTotal)
	return m
}

func (m *metrics) enqueued() {
	if m == nil {
		return
	}
	m.waitersEnqueued.Inc()
}

func (m *metrics) dequeued() {
	if m == nil {
		return
	}
	m.waitersEnqueued.Dec()
}

func (m *metrics) handoff(mode string) {
	if m == nil {
		return
	}
	m.handoffsTotal.WithLabelValues(mode).Inc()
}
