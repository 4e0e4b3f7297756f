// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

/*
Package api is the HTTP boundary of CFRecall, built on chi.

Reads (recall, stats) run synchronously on the bounded read pool. Writes
(daily batch, save, load, reinitialize) are submitted to the single-consumer
write queue and answered with 202 Accepted and a task id that can be polled.

# Versioned routes

	GET  /api/v1/recall/{userID}?top_k=10
	POST /api/v1/batches              {"date": "20240101"}
	POST /api/v1/model/save           {"registry_location": "...", ...}
	POST /api/v1/model/load           {"registry_location": "...", ...}
	POST /api/v1/model/reinitialize   {"start_date": "20240101", "end_date": "20240131"}
	GET  /api/v1/model/stats
	GET  /api/v1/tasks/{taskID}

# Legacy routes

The form-encoded routes of the original service are kept for existing callers:

	POST /cf_recall?user_id=u1&top_k=10
	POST /update
	POST /save    (form: indices_path, long_term_path, short_term_path)
	POST /load    (form: indices_path, long_term_path, short_term_path)

# Operational routes

	GET /health/live
	GET /health/ready
	GET /metrics
*/
package api
