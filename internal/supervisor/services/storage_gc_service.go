// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GarbageCollector reclaims storage space. Satisfied by *storage.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// StorageGCService runs value log GC on a fixed interval. GC errors are
// logged and retried on the next tick.
type StorageGCService struct {
	gc       GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
}

// NewStorageGCService creates the service. A non-positive interval becomes 10m.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStorageGCService(gc GarbageCollector, interval time.Duration, logger zerolog.Logger) *StorageGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StorageGCService{
		gc:       gc,
		interval: interval,
		logger:   logger.With().Str("component", "storage-gc").Logger(),
	}
}

// Serve implements suture.Service.
func (s *StorageGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("storage GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("storage GC finished")
		}
	}
}

// String implements fmt.Stringer.
func (s *StorageGCService) String() string {
	return "storage-gc"
}
