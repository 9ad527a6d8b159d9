// Package metrics bundles the hub's Prometheus instrumentation behind one
// struct, registered on an injectable registry so tests stay isolated.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the hub emits.
type Metrics struct {
	Registry *prometheus.Registry

	TurnsStarted     prometheus.Counter
	TurnsFinished    *prometheus.CounterVec
	EventsNormalized *prometheus.CounterVec
	ConnectAttempts  *prometheus.CounterVec
	ConnectDuration  prometheus.Histogram
}

// New creates a Metrics set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		TurnsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "agenthub_turns_started_total",
			Help: "Conversation turns submitted to a backend.",
		}),
		TurnsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenthub_turns_finished_total",
			Help: "Conversation turns that reached a terminal state, by state.",
		}, []string{"state"}),
		EventsNormalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenthub_events_normalized_total",
			Help: "Raw backend events consumed by the normalization pipeline, by backend kind.",
		}, []string{"kind"}),
		ConnectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agenthub_backend_connect_attempts_total",
			Help: "Backend connect attempts, by backend id and outcome.",
		}, []string{"backend", "outcome"}),
		ConnectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agenthub_backend_connect_duration_seconds",
			Help:    "Time spent bringing a backend serving surface up.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
