// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package middleware provides the HTTP middleware shared by every route:
// request IDs with request logging, and Prometheus request metrics labeled by
// chi route pattern.
//
// Both are func(http.Handler) http.Handler so they plug into chi's r.Use:
//
//	r.Use(middleware.RequestID)
//	r.Use(middleware.Metrics)
package middleware
