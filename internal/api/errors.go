// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/cfrecall/internal/feed"
	"github.com/tomtom215/cfrecall/internal/recall"
	"github.com/tomtom215/cfrecall/internal/worker"
)

// Error codes returned in APIError.Code.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidBody        = "INVALID_BODY"
	CodeNotFound           = "NOT_FOUND"
	CodeQueueFull          = "QUEUE_FULL"
	CodeShuttingDown       = "SHUTTING_DOWN"
	CodeBusy               = "BUSY"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeDimensionMismatch  = "DIMENSION_MISMATCH"
	CodeNotReady           = "NOT_READY"
	CodeInternal           = "INTERNAL_ERROR"
)

// classify maps an error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, worker.ErrQueueFull):
		return http.StatusServiceUnavailable, CodeQueueFull
	case errors.Is(err, worker.ErrQueueClosed):
		return http.StatusServiceUnavailable, CodeShuttingDown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeBusy
	case errors.Is(err, recall.ErrStorageUnavailable), errors.Is(err, recall.ErrNoStore), errors.Is(err, feed.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, CodeStorageUnavailable
	case errors.Is(err, recall.ErrDimensionMismatch):
		return http.StatusInternalServerError, CodeDimensionMismatch
	case errors.Is(err, feed.ErrInvalidDate), errors.Is(err, recall.ErrInvalidConfig):
		return http.StatusBadRequest, CodeValidation
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
