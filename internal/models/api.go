// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package models holds the HTTP request and response shapes.
package models

import "time"

// APIResponse wraps every versioned API response.
//
//	{
//	  "status": "success",
//	  "data": {"long_term_recall": ["i3"], "short_term_recall": ["i1", "i2"]},
//	  "metadata": {"timestamp": "2026-01-02T03:04:05Z", "query_time_ms": 1}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata is attached to every response.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
	RequestID   string    `json:"request_id,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// RecallRequest is the input of a recall. A non-positive TopK yields two
// empty lists.
type RecallRequest struct {
	UserID string `json:"user_id" validate:"required,max=512"`
	TopK   int    `json:"top_k" validate:"lte=1000"`
}

// BatchRequest asks for the daily batch of Date (default: yesterday).
type BatchRequest struct {
	Date string `json:"date" validate:"omitempty,yyyymmdd"`
}

// PersistRequest names the three persistence locations. Empty fields use
// the configured defaults.
type PersistRequest struct {
	RegistryLocation  string `json:"registry_location" validate:"omitempty,location,max=1024"`
	LongTermLocation  string `json:"long_term_location" validate:"omitempty,location,max=1024"`
	ShortTermLocation string `json:"short_term_location" validate:"omitempty,location,max=1024"`
}

// ReinitializeRequest replays [StartDate, EndDate]; EndDate defaults to today.
type ReinitializeRequest struct {
	StartDate string `json:"start_date" validate:"required,yyyymmdd"`
	EndDate   string `json:"end_date" validate:"omitempty,yyyymmdd"`
}

// TaskAccepted is returned with 202 for queued writes.
type TaskAccepted struct {
	TaskID    string `json:"task_id"`
	Kind      string `json:"kind"`
	StatusURL string `json:"status_url"`
}

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status     string `json:"status"`
	Users      int    `json:"users"`
	Items      int    `json:"items"`
	QueueDepth int    `json:"queue_depth"`
}
