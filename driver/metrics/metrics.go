// Package metrics exposes Prometheus instrumentation for driver sessions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters a driver.Session reports through. A nil
// *Metrics is safe to use; every method no-ops.
type Metrics struct {
	operationsTotal *prometheus.CounterVec
	errorsByKind    *prometheus.CounterVec
	connectsTotal   prometheus.Counter
	timeoutsTotal   prometheus.Counter
}

// New registers a fresh set of driver metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "driver",
			Name:      "operations_total",
			Help:      "Driver operations invoked, labeled by operation name.",
		}, []string{"operation"}),
		errorsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "driver",
			Name:      "errors_total",
			Help:      "Driver operation failures, labeled by error kind.",
		}, []string{"kind"}),
		connectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "driver",
			Name:      "connects_total",
			Help:      "Successful Connect calls.",
		}),
		timeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "driver",
			Name:      "timeouts_total",
			Help:      "Operations that failed with a timeout.",
		}),
	}

	reg.MustRegister(m.operationsTotal, m.errorsByKind, m.connectsTotal, m.timeoutsTotal)

	return m
}

func (m *Metrics) Operation(name string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
	if kind == "timeout" {
		m.timeoutsTotal.Inc()
	}
}

func (m *Metrics) Connected() {
	if m == nil {
		return
	}
	m.connectsTotal.Inc()
}
