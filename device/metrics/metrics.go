// Package metrics exposes Prometheus instrumentation for the device
// server, grounded on prometheus/client_golang the way
// taoyao-code-iot-server-cdz wires it for its transport layer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter and gauge the device server updates. A nil
// *Metrics is safe to use: every method no-ops, so callers that don't want
// instrumentation can simply not call New.
type Metrics struct {
	connectionsTotal   prometheus.Counter
	connectionsActive  prometheus.Gauge
	framesByBase       *prometheus.CounterVec
	errorsByCode       *prometheus.CounterVec
	malformedFrames    prometheus.Counter
	rateLimitedFrames  prometheus.Counter
}

// New registers a fresh set of device-server metrics on reg and returns
// them. Pass prometheus.NewRegistry() in tests to avoid collisions with
// the global default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "device",
			Name:      "connections_total",
			Help:      "Total number of client connections accepted.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "semivibe",
			Subsystem: "device",
			Name:      "connections_active",
			Help:      "Number of currently connected clients (0 or 1).",
		}),
		framesByBase: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "device",
			Name:      "frames_total",
			Help:      "Command frames processed, labeled by base address name.",
		}, []string{"base"}),
		errorsByCode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "device",
			Name:      "error_frames_total",
			Help:      "Error-response frames emitted, labeled by error code.",
		}, []string{"code"}),
		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "device",
			Name:      "malformed_frames_total",
			Help:      "Frames rejected for wrong length or non-hex content.",
		}),
		rateLimitedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semivibe",
			Subsystem: "device",
			Name:      "rate_limited_frames_total",
			Help:      "Frames dropped by the per-connection rate limiter.",
		}),
	}

	reg.MustRegister(m.connectionsTotal, m.connectionsActive, m.framesByBase, m.errorsByCode, m.malformedFrames, m.rateLimitedFrames)

	return m
}

func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) FrameProcessed(base string) {
	if m == nil {
		return
	}
	m.framesByBase.WithLabelValues(base).Inc()
}

func (m *Metrics) ErrorEmitted(code string) {
	if m == nil {
		return
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

func (m *Metrics) MalformedFrame() {
	if m == nil {
		return
	}
	m.malformedFrames.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedFrames.Inc()
}
