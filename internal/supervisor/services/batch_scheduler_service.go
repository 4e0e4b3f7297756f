// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cfrecall/internal/feed"
	"github.com/tomtom215/cfrecall/internal/ingest"
	"github.com/tomtom215/cfrecall/internal/worker"
)

// ScheduledTaskKind is the queue task kind of scheduler submissions.
const ScheduledTaskKind = "scheduled_batch"

// TaskSubmitter accepts write tasks. Satisfied by *worker.Queue.
type TaskSubmitter interface {
	Submit(kind string, fn worker.TaskFunc) (string, error)
}

// DailyApplier applies one day's feed. Satisfied by *ingest.Runner.
type DailyApplier interface {
	ApplyDaily(ctx context.Context, date string) (ingest.Report, error)
}

// BatchSchedulerConfig controls the batch scheduler.
type BatchSchedulerConfig struct {
	Interval     time.Duration
	LagDays      int
	RunOnStartup bool
}

// BatchSchedulerService submits the daily batch through the write queue,
// so scheduled batches are serialized with API-driven writes. A date is
// applied at most once per process; a failed date is submitted again on
// the next tick.
type BatchSchedulerService struct {
	queue  TaskSubmitter
	runner DailyApplier
	config BatchSchedulerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	applied string // last date whose task succeeded
	pending string // date with a task in the queue
}

// NewBatchSchedulerService creates the scheduler. A non-positive interval
// becomes 24h.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBatchSchedulerService(queue TaskSubmitter, runner DailyApplier, cfg BatchSchedulerConfig, logger zerolog.Logger) *BatchSchedulerService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &BatchSchedulerService{
		queue:  queue,
		runner: runner,
		config: cfg,
		logger: logger.With().Str("component", "batch-scheduler").Logger(),
		now:    time.Now,
	}
}

// Serve implements suture.Service.
func (s *BatchSchedulerService) Serve(ctx context.Context) error {
	if s.config.RunOnStartup {
		if err := s.tick(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(); err != nil {
				return err
			}
		}
	}
}

// tick submits the current batch date unless it already succeeded or is
// still queued. A full queue is retried on the next tick; a closed queue
// stops the service for good.
func (s *BatchSchedulerService) tick() error {
	date := feed.Today(s.now(), s.config.LagDays)

	s.mu.Lock()
	if date == s.applied || date == s.pending {
		s.mu.Unlock()
		return nil
	}
	s.pending = date
	s.mu.Unlock()

	id, err := s.queue.Submit(ScheduledTaskKind, func(ctx context.Context) (any, error) {
		return s.run(ctx, date)
	})
	if err != nil {
		s.mu.Lock()
		if s.pending == date {
			s.pending = ""
		}
		s.mu.Unlock()
	}
	switch {
	case errors.Is(err, worker.ErrQueueClosed):
		s.logger.Info().Msg("write queue closed; scheduler stopping")
		return suture.ErrDoNotRestart
	case err != nil:
		s.logger.Warn().Err(err).Str("date", date).Msg("scheduled batch not submitted")
		return nil
	}

	s.logger.Info().Str("date", date).Str("task_id", id).Msg("scheduled batch submitted")
	return nil
}

// run applies date and records it as done only on success.
func (s *BatchSchedulerService) run(ctx context.Context, date string) (ingest.Report, error) {
	report, err := s.runner.ApplyDaily(ctx, date)

	s.mu.Lock()
	if s.pending == date {
		s.pending = ""
	}
	if err == nil {
		s.applied = date
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("date", date).Msg("scheduled batch failed; retrying next tick")
	}
	return report, err
}

// lastApplied returns the last date whose batch succeeded.
func (s *BatchSchedulerService) lastApplied() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// String implements fmt.Stringer.
func (s *BatchSchedulerService) String() string {
	return "batch-scheduler"
}
