// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import "errors"

var (
	// ErrDimensionMismatch reports that the registry and matrix dimensions
	// disagree. State in this condition is never persisted.
	ErrDimensionMismatch = errors.New("recall: registry and matrix dimensions disagree")

	// ErrStorageUnavailable wraps failures reading or writing persisted state.
	ErrStorageUnavailable = errors.New("recall: storage unavailable")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("recall: invalid config")

	// ErrNoStore is returned when persistence is requested without a store.
	ErrNoStore = errors.New("recall: no store configured")
)
