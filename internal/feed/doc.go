// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package feed reads the daily interaction export that drives model updates.
//
// A Source returns the interactions recorded on one calendar day. The DuckDB
// source looks for a dated CSV file first ({date}_dim_drama_eposides_labels_di.csv
// by default) and falls back to querying a table partitioned by a dt column.
// A day with neither yields an empty batch, which callers treat as a no-op.
//
// BreakerSource wraps any Source with a gobreaker circuit breaker so that a
// failing warehouse does not stall a reinitialize replay one timeout at a time.
package feed
