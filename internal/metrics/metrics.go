// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch pipeline
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_batches_total",
			Help: "Total number of daily batches by outcome",
		},
		[]string{"status"}, // "applied", "empty", "failed"
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recall_batch_duration_seconds",
			Help:    "Duration of decay, accumulate, normalize and persist for one batch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	InteractionsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_interactions_applied_total",
			Help: "Total number of interactions added to the score matrices",
		},
	)

	MalformedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_malformed_records_total",
			Help: "Total number of interaction records skipped as malformed",
		},
		[]string{"stage"}, // "feed", "model"
	)

	// Model state
	RegistryUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recall_registry_users",
			Help: "Number of users in the identifier registry",
		},
	)

	RegistryItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recall_registry_items",
			Help: "Number of items in the identifier registry",
		},
	)

	MatrixNonzeros = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recall_matrix_nonzeros",
			Help: "Number of stored entries per score matrix",
		},
		[]string{"horizon"},
	)

	// Serving
	RecallRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_requests_total",
			Help: "Total number of recall requests by outcome",
		},
		[]string{"outcome"}, // "ok", "cold_start", "rejected"
	)

	RecallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recall_request_duration_seconds",
			Help:    "Duration of recall requests including worker pool wait",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecallCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_cache_lookups_total",
			Help: "Recall result cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Background work
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recall_queue_depth",
			Help: "Number of write tasks waiting for the single consumer",
		},
	)

	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_tasks_total",
			Help: "Total number of write tasks by kind and final status",
		},
		[]string{"kind", "status"}, // status: "succeeded", "failed", "rejected"
	)

	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"backend", "op", "status"}, // status: "ok", "not_found", "error"
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recall_storage_operation_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordBatch records the outcome of one daily batch.
func RecordBatch(status string, duration time.Duration, applied int) {
	BatchesTotal.WithLabelValues(status).Inc()
	if status == "applied" {
		BatchDuration.Observe(duration.Seconds())
		InteractionsApplied.Add(float64(applied))
	}
}

// RecordMalformed adds skipped records for a pipeline stage.
func RecordMalformed(stage string, n int) {
	if n > 0 {
		MalformedRecords.WithLabelValues(stage).Add(float64(n))
	}
}

// UpdateModelGauges publishes registry and matrix sizes.
func UpdateModelGauges(users, items, longTermNNZ, shortTermNNZ int) {
	RegistryUsers.Set(float64(users))
	RegistryItems.Set(float64(items))
	MatrixNonzeros.WithLabelValues("long_term").Set(float64(longTermNNZ))
	MatrixNonzeros.WithLabelValues("short_term").Set(float64(shortTermNNZ))
}

// RecordRecall records a recall request.
func RecordRecall(outcome string, duration time.Duration) {
	RecallRequests.WithLabelValues(outcome).Inc()
	RecallDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a recall cache lookup.
func RecordCacheLookup(hit bool) {
	if hit {
		RecallCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	RecallCacheLookups.WithLabelValues("miss").Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordTask records the final status of a write task.
func RecordTask(kind, status string) {
	TasksTotal.WithLabelValues(kind, status).Inc()
}

// RecordStorageOp records a storage operation.
func RecordStorageOp(backend, op, status string, duration time.Duration) {
	StorageOperations.WithLabelValues(backend, op, status).Inc()
	StorageDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change.
// States are encoded 0=closed, 1=half-open, 2=open.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
