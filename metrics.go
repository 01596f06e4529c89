package eventpool

import "github.com/prometheus/client_golang/prometheus"

// PoolMetrics wraps the Prometheus collectors a Pool reports through when
// constructed with WithMetrics. Grounded on oriys-nova's
// internal/metrics/prometheus.go: namespaced Counter/Gauge/CounterVec
// collectors built directly against a caller-supplied Registerer rather
// than a package-global registry, since many Pools may coexist in one
// process.
type PoolMetrics struct {
	slotsInUse      prometheus.Gauge
	slotsCapacity   prometheus.Gauge
	workersActive   prometheus.Gauge
	dispatchTotal   *prometheus.CounterVec
	pollerDeathTotal prometheus.Counter
	armingFailures  prometheus.Counter
	capacityFailures prometheus.Counter
}

// newPoolMetrics registers the collector set under namespace into reg. A
// nil reg disables metrics entirely; Pool guards every call site on
// m != nil.
func newPoolMetrics(reg prometheus.Registerer, namespace string) *PoolMetrics {
	if reg == nil {
		return nil
	}

	m := &PoolMetrics{
		slotsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_in_use",
			Help:      "Number of currently-registered slots.",
		}),
		slotsCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_capacity",
			Help:      "Total slot capacity across allocated outer buckets.",
		}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of currently-running dispatch workers.",
		}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Dispatched events by outcome.",
		}, []string{"outcome"}),
		pollerDeathTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poller_death_notifications_total",
			Help:      "Total poller-death handler invocations delivered.",
		}),
		armingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kernel_arming_failures_total",
			Help:      "Total kernel arm/modify/detach failures.",
		}),
		capacityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_exhausted_total",
			Help:      "Total registrations rejected for lack of a free slot.",
		}),
	}

	reg.MustRegister(
		m.slotsInUse,
		m.slotsCapacity,
		m.workersActive,
		m.dispatchTotal,
		m.pollerDeathTotal,
		m.armingFailures,
		m.capacityFailures,
	)
	return m
}

// dispatch outcome labels for dispatchTotal.
const (
	outcomeHandled    = "handled"
	outcomeStale      = "stale"
	outcomeBusy       = "busy"
	outcomeSuppressed = "suppressed"
)

func (m *PoolMetrics) observeDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcome).Inc()
}

func (m *PoolMetrics) observePollerDeath() {
	if m == nil {
		return
	}
	m.pollerDeathTotal.Inc()
}

func (m *PoolMetrics) observeArmingFailure() {
	if m == nil {
		return
	}
	m.armingFailures.Inc()
}

func (m *PoolMetrics) observeCapacityExhausted() {
	if m == nil {
		return
	}
	m.capacityFailures.Inc()
}

func (m *PoolMetrics) setSlotsInUse(n int) {
	if m == nil {
		return
	}
	m.slotsInUse.Set(float64(n))
}

func (m *PoolMetrics) setSlotsCapacity(n int) {
	if m == nil {
		return
	}
	m.slotsCapacity.Set(float64(n))
}

func (m *PoolMetrics) setWorkersActive(n int) {
	if m == nil {
		return
	}
	m.workersActive.Set(float64(n))
}
