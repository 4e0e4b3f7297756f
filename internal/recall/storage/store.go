// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists at the location.
var ErrNotFound = errors.New("storage: record not found")

// ErrEmptyLocation is returned for an empty location string.
var ErrEmptyLocation = errors.New("storage: empty location")

// ErrInvalidLocation is returned for a location that is absolute or
// escapes the store root.
var ErrInvalidLocation = errors.New("storage: location outside store root")

// Store persists gob-encodable records under opaque locations.
type Store interface {
	// Put encodes v and stores it at location, replacing any previous record.
	Put(ctx context.Context, location string, v any) error

	// Get decodes the record at location into target.
	// Returns ErrNotFound if nothing is stored there.
	Get(ctx context.Context, location string, target any) (*Metadata, error)

	// Name identifies the backend in logs and metrics.
	Name() string

	// Close releases backend resources.
	Close() error
}
