// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cfrecall/internal/metrics"
)

// ErrSourceUnavailable is returned while the breaker is open.
var ErrSourceUnavailable = errors.New("feed source unavailable")

// BreakerConfig configures a BreakerSource.
type BreakerConfig struct {
	Name string

	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32

	// Timeout is how long the breaker stays open before a trial request.
	Timeout time.Duration
}

// BreakerSource guards a Source with a circuit breaker.
type BreakerSource struct {
	next Source
	cb   *gobreaker.CircuitBreaker[Batch]
}

// NewBreakerSource wraps next.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreakerSource(next Source, cfg BreakerConfig, logger zerolog.Logger) *BreakerSource {
	if cfg.Name == "" {
		cfg.Name = "feed"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	log := logger.With().Str("component", "feed-breaker").Logger()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about the source.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidDate)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	}

	return &BreakerSource{next: next, cb: gobreaker.NewCircuitBreaker[Batch](settings)}
}

// Fetch implements Source.
func (b *BreakerSource) Fetch(ctx context.Context, date string) (Batch, error) {
	batch, err := b.cb.Execute(func() (Batch, error) {
		return b.next.Fetch(ctx, date)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Batch{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return batch, err
}

// State returns the breaker state name.
func (b *BreakerSource) State() string {
	return b.cb.State().String()
}
