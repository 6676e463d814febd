// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package metrics provides Prometheus instrumentation for BoardPulse.
//
// Instrumented areas:
//   - Permission cache reads (hits, misses, fallbacks to the role service)
//   - Authorization decisions
//   - DuckDB query performance
//   - Sprint scheduler sweeps
//   - Activity event pipeline (published, consumed, append failures)
//   - Circuit breaker state for downstream HTTP clients
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Permission cache metrics

	PermCacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permcache_reads_total",
			Help: "Permission cache read outcomes per key kind",
		},
		[]string{"key", "outcome"}, // key: role|permissions|owner, outcome: hit|miss|error
	)

	PermCacheFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permcache_fallbacks_total",
			Help: "Full fallbacks to the authoritative role service, by trigger",
		},
		[]string{"reason"}, // role_miss|permissions_miss|owner_miss|unparsable
	)

	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by permission and outcome",
		},
		[]string{"permission", "allowed"},
	)

	// Database metrics

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Scheduler metrics

	SchedulerSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_sweeps_total",
			Help: "Completed scheduler sweep ticks",
		},
	)

	SchedulerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_transitions_total",
			Help: "Automatic sprint transitions by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: auto_start|auto_complete, outcome: ok|error
	)

	SchedulerSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_sweep_duration_seconds",
			Help:    "Duration of a full scheduler sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Analytics metrics

	DashboardRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_recomputes_total",
			Help: "Dashboard recomputations by outcome",
		},
		[]string{"outcome"},
	)

	TrendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trend_cache_hits_total",
			Help: "Metric trend cache hits",
		},
	)

	TrendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trend_cache_misses_total",
			Help: "Metric trend cache misses",
		},
	)

	// Event pipeline metrics

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_published_total",
			Help: "Activity events published to the bus",
		},
		[]string{"outcome"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_consumed_total",
			Help: "Activity events consumed and appended to the log",
		},
		[]string{"outcome"}, // ok|duplicate|error
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveDBQuery records a query duration and, when err is non-nil, an error.
func ObserveDBQuery(operation, table string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAuthzDecision records one permission check outcome.
func RecordAuthzDecision(permission string, allowed bool) {
	v := "false"
	if allowed {
		v = "true"
	}
	AuthzDecisions.WithLabelValues(permission, v).Inc()
}
