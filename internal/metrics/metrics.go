// Package metrics registers the Prometheus metrics used by the slot
// coordinator, the lookup client, the chooser launchers and the HTTP API.
// All metrics are registered on the default registry at import time so the
// /metrics handler exposes them without further wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by several counters.
const (
	OutcomeBound       = "bound"
	OutcomeUnbound     = "unbound"
	OutcomeUnknownSlot = "unknown_slot"
	OutcomeStale       = "stale"
	OutcomeOrphan      = "orphan"
)

// Coordinator metrics.
var (
	// BulkResults counts bulk-refresh results by outcome ("bound",
	// "unbound", "unknown_slot").
	BulkResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceslots_bulk_results_total",
			Help: "Bulk provider lookup results received by the coordinator.",
		},
		[]string{"outcome"},
	)

	// ChooserSessions counts chooser launches by status ("launched",
	// "unsupported", "failed").
	ChooserSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceslots_chooser_sessions_total",
			Help: "Chooser sessions requested by slot selection.",
		},
		[]string{"status"},
	)

	// ChooserResponses counts chooser responses by outcome ("bound",
	// "unbound", "stale", "orphan").
	ChooserResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceslots_chooser_responses_total",
			Help: "Chooser responses received by the coordinator.",
		},
		[]string{"outcome"},
	)

	// ViewSinkFailures counts view sink errors and panics swallowed by the
	// coordinator.
	ViewSinkFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faceslots_view_sink_failures_total",
			Help: "View sink notifications that returned an error or panicked.",
		},
	)

	// SlotsBound reports how many slots currently have a provider bound.
	SlotsBound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "faceslots_slots_bound",
			Help: "Number of slots with a provider currently bound.",
		},
	)
)

// Lookup and chooser transport metrics.
var (
	// LookupDuration observes per-slot backend lookup latency in seconds.
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faceslots_lookup_duration_seconds",
			Help:    "Provider lookup latency per slot, in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"backend"},
	)

	// LookupErrors counts backend lookup failures.
	LookupErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceslots_lookup_errors_total",
			Help: "Provider lookups that failed in the backend.",
		},
		[]string{"backend"},
	)

	// ChooserCircuitState tracks the HTTP chooser circuit breaker as a gauge:
	// 0 = closed, 1 = open, 2 = half_open.
	ChooserCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "faceslots_chooser_circuit_state",
			Help: "HTTP chooser circuit breaker state (0=closed 1=open 2=half_open).",
		},
	)

	// RateLimitRejections counts API requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faceslots_api_rate_limit_rejections_total",
			Help: "API requests rejected by rate limiting.",
		},
	)
)
