// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cfrecall/internal/metrics"
)

// Instrumented wraps a Store with metrics and debug logging.
type Instrumented struct {
	Store
	logger zerolog.Logger
}

// Instrument wraps store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Instrument(store Store, logger zerolog.Logger) *Instrumented {
	return &Instrumented{
		Store:  store,
		logger: logger.With().Str("component", "storage").Str("backend", store.Name()).Logger(),
	}
}

// Put implements Store.
func (s *Instrumented) Put(ctx context.Context, location string, v any) error {
	start := time.Now()
	err := s.Store.Put(ctx, location, v)
	s.record("put", location, start, err)
	return err
}

// Get implements Store.
func (s *Instrumented) Get(ctx context.Context, location string, target any) (*Metadata, error) {
	start := time.Now()
	meta, err := s.Store.Get(ctx, location, target)
	s.record("get", location, start, err)
	return meta, err
}

// Unwrap returns the underlying store.
func (s *Instrumented) Unwrap() Store { return s.Store }

func (s *Instrumented) record(op, location string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.RecordStorageOp(s.Store.Name(), op, status, elapsed)

	event := s.logger.Debug()
	if status == "error" {
		event = s.logger.Warn().Err(err)
	}
	event.
		Str("op", op).
		Str("location", location).
		Str("status", status).
		Dur("duration", elapsed).
		Msg("storage operation")
}
