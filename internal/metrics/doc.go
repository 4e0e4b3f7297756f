// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

/*
Package metrics provides Prometheus metrics collection and export for observability.

Collectors are registered with the default registry through promauto and are
exposed at /metrics by the API router:

	curl http://localhost:8080/metrics

# Available Metrics

Batch pipeline:
  - recall_batches_total{status}: applied, empty, failed
  - recall_batch_duration_seconds
  - recall_interactions_applied_total
  - recall_malformed_records_total{stage}: feed, model

Model state:
  - recall_registry_users, recall_registry_items
  - recall_matrix_nonzeros{horizon}

Serving:
  - recall_requests_total{outcome}: ok, cold_start, rejected
  - recall_request_duration_seconds
  - recall_cache_lookups_total{result}: hit, miss
  - http_requests_total{method, route, status}
  - http_request_duration_seconds{method, route}

Background work:
  - recall_queue_depth
  - recall_tasks_total{kind, status}
  - recall_storage_operations_total{backend, op, status}
  - recall_storage_operation_duration_seconds{backend, op}
  - circuit_breaker_state{name}, circuit_breaker_state_transitions_total{name, from_state, to_state}
*/
package metrics
