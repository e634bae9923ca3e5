// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Ingestion runs (per source: pages, events, outcomes, duration)
// - Canonical store upserts
// - Resilient lookup caches (hits, stale serves, coalesced calls, sentinels)
// - Render collaborator circuit breaker

var (
	// Ingestion metrics
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_ingest_runs_total",
			Help: "Total ingestion runs per source and outcome",
		},
		[]string{"source", "outcome"}, // outcome: "ok", "skipped", "error"
	)

	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_ingest_events_total",
			Help: "Total candidate events ingested into the canonical catalog",
		},
		[]string{"source"},
	)

	IngestDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_ingest_dropped_total",
			Help: "Candidate events dropped before canonicalization (missing title or start time)",
		},
		[]string{"source"},
	)

	IngestPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_ingest_pages_total",
			Help: "Provider pages fetched during ingestion",
		},
		[]string{"source"},
	)

	IngestRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gigcat_ingest_run_duration_seconds",
			Help:    "Duration of a single (source, city) ingestion run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	ResyncSkippedInFlight = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_resync_skipped_inflight_total",
			Help: "Resync triggers that were no-ops because a run was already in flight for the key",
		},
		[]string{"source"},
	)

	// Canonical store metrics
	StoreUpsertDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gigcat_store_upsert_duration_seconds",
			Help:    "Duration of canonical store upsert operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "event", "source_link", "cursor"
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_store_errors_total",
			Help: "Canonical store operation errors",
		},
		[]string{"operation"},
	)

	// Resilient lookup cache metrics (one label per client: spotify, mixcloud, ...)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_lookup_cache_hits_total",
			Help: "Fresh cache hits served without an upstream call",
		},
		[]string{"client"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_lookup_cache_misses_total",
			Help: "Cache misses that triggered an upstream fetch",
		},
		[]string{"client"},
	)

	CacheStaleServes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_lookup_cache_stale_serves_total",
			Help: "Stale values served because the upstream fetch failed inside the grace period",
		},
		[]string{"client"},
	)

	CacheCoalesced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_lookup_cache_coalesced_total",
			Help: "Callers that attached to an already in-flight fetch for the same key",
		},
		[]string{"client"},
	)

	CacheRateLimitSentinels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_lookup_cache_ratelimit_sentinels_total",
			Help: "Rate-limit sentinel entries written after an upstream 429",
		},
		[]string{"client"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_lookup_cache_evictions_total",
			Help: "Entries removed by the lazy cleanup sweep",
		},
		[]string{"client"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gigcat_lookup_cache_entries",
			Help: "Current number of entries per lookup cache",
		},
		[]string{"client"},
	)

	// Upstream retry metrics
	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_upstream_retries_total",
			Help: "Retries issued against upstream providers after transient failures",
		},
		[]string{"client"},
	)

	// Render collaborator circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gigcat_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP ops surface
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigcat_api_requests_total",
			Help: "Total requests to the operational HTTP surface",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gigcat_api_request_duration_seconds",
			Help:    "Request duration on the operational HTTP surface",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveIngestRun records the terminal metrics for one (source, city) run.
func ObserveIngestRun(source, outcome string, count int, start time.Time) {
	IngestRunsTotal.WithLabelValues(source, outcome).Inc()
	if count > 0 {
		IngestEventsTotal.WithLabelValues(source).Add(float64(count))
	}
	IngestRunDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
