// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set holds every collector the engine emits. A nil *Set is a valid
// no-op receiver so wiring metrics stays optional in tests.
type Set struct {
	BatchRuns     *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	BatchLines    prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New builds and registers the collector set.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		BatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aca",
			Subsystem: "report",
			Name:      "batch_runs_total",
			Help:      "Completed batch report runs by outcome.",
		}, []string{"outcome"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aca",
			Subsystem: "report",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of batch report runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		BatchLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aca",
			Subsystem: "report",
			Name:      "batch_lines",
			Help:      "Form lines produced per batch run.",
			Buckets:   prometheus.ExponentialBuckets(12, 2, 12),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aca",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aca",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(s.BatchRuns, s.BatchDuration, s.BatchLines, s.HTTPRequests, s.HTTPDuration)
	return s
}

// ObserveBatch records one batch run. Safe on a nil Set.
func (s *Set) ObserveBatch(outcome string, seconds float64, lines int) {
	if s == nil {
		return
	}
	s.BatchRuns.WithLabelValues(outcome).Inc()
	s.BatchDuration.Observe(seconds)
	s.BatchLines.Observe(float64(lines))
}

// ObserveHTTP records one served request. Safe on a nil Set.
func (s *Set) ObserveHTTP(route, method, status string, seconds float64) {
	if s == nil {
		return
	}
	s.HTTPRequests.WithLabelValues(route, method, status).Inc()
	s.HTTPDuration.WithLabelValues(route).Observe(seconds)
}
