package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by the gate.
type Metrics struct {
	Decisions      *prometheus.CounterVec
	LookupDuration prometheus.Histogram
	Bypassed       prometheus.Counter
	Panics         prometheus.Counter
}

// NewMetrics creates and registers the gate metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ytdash",
				Subsystem: "gate",
				Name:      "decisions_total",
				Help:      "Access decisions by route class, decision and reason",
			},
			[]string{"class", "decision", "reason"},
		),
		LookupDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "ytdash",
				Subsystem: "gate",
				Name:      "session_lookup_duration_seconds",
				Help:      "Session lookup latency, including token refresh",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Bypassed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "ytdash",
				Subsystem: "gate",
				Name:      "excluded_requests_total",
				Help:      "Requests for excluded paths that skipped the gate",
			},
		),
		Panics: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "ytdash",
				Subsystem: "gate",
				Name:      "recovered_panics_total",
				Help:      "Panics inside the gate converted to login redirects",
			},
		),
	}
}
