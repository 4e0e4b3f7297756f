// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

// Package ingest turns daily feed batches into model updates.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cfrecall/internal/feed"
	"github.com/tomtom215/cfrecall/internal/metrics"
	"github.com/tomtom215/cfrecall/internal/recall"
)

// Applier is the slice of the model the runner mutates.
type Applier interface {
	ApplyBatch(ctx context.Context, batch []recall.Interaction) (recall.BatchResult, error)
	Stats() recall.Stats
}

// Report describes one ApplyDaily call.
type Report struct {
	Date    string             `json:"date"`
	Source  string             `json:"source"`
	Fetched int                `json:"fetched"`
	Skipped int                `json:"skipped"`
	Empty   bool               `json:"empty"`
	Result  recall.BatchResult `json:"result"`
}

// ReplayReport describes one Reinitialize call.
type ReplayReport struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	DaysApplied int      `json:"days_applied"`
	DaysEmpty   int      `json:"days_empty"`
	Days        []Report `json:"days"`
}

// Runner applies feed batches to the model.
type Runner struct {
	model   Applier
	source  feed.Source
	limiter *rate.Limiter
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRunner creates a runner. replayRate caps days per second during
// Reinitialize; zero or less is unlimited.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRunner(model Applier, source feed.Source, replayRate float64, logger zerolog.Logger) *Runner {
	limit := rate.Inf
	if replayRate > 0 {
		limit = rate.Limit(replayRate)
	}
	return &Runner{
		model:   model,
		source:  source,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		logger:  logger.With().Str("component", "ingest").Logger(),
	}
}

// ApplyDaily fetches the feed for date and applies it. An empty or absent
// feed is a no-op: the model is not touched and no decay happens.
func (r *Runner) ApplyDaily(ctx context.Context, date string) (Report, error) {
	start := time.Now()
	rep := Report{Date: date}

	batch, err := r.source.Fetch(ctx, date)
	if err != nil {
		metrics.RecordBatch("error", time.Since(start), 0)
		return rep, fmt.Errorf("fetch feed for %s: %w", date, err)
	}
	rep.Source = batch.Source
	rep.Fetched = len(batch.Interactions)
	rep.Skipped = batch.Skipped
	if batch.Skipped > 0 {
		metrics.RecordMalformed("feed", batch.Skipped)
	}

	if batch.Empty() {
		rep.Empty = true
		metrics.RecordBatch("empty", time.Since(start), 0)
		r.logger.Info().Str("date", date).Str("source", batch.Source).Msg("empty feed, nothing to apply")
		return rep, nil
	}

	res, err := r.model.ApplyBatch(ctx, batch.Interactions)
	rep.Result = res
	if err != nil {
		metrics.RecordBatch("error", time.Since(start), res.Applied)
		return rep, fmt.Errorf("apply batch for %s: %w", date, err)
	}
	if res.Skipped > 0 {
		metrics.RecordMalformed("model", res.Skipped)
	}
	metrics.RecordBatch("applied", time.Since(start), res.Applied)

	st := r.model.Stats()
	metrics.UpdateModelGauges(st.Users, st.Items, st.LongTermNNZ, st.ShortTermNNZ)

	r.logger.Info().
		Str("date", date).
		Int("applied", res.Applied).
		Int("skipped", res.Skipped+batch.Skipped).
		Int("new_users", res.NewUsers).
		Int("new_items", res.NewItems).
		Dur("duration", time.Since(start)).
		Msg("daily batch applied")

	return rep, nil
}

// Reinitialize replays every date in [startDate, endDate] in order. An empty
// endDate means today. Empty days are skipped. The first failing day stops
// the replay; the report covers the days processed before it.
func (r *Runner) Reinitialize(ctx context.Context, startDate, endDate string) (ReplayReport, error) {
	if endDate == "" {
		endDate = feed.FormatDate(r.now())
	}
	rep := ReplayReport{Start: startDate, End: endDate}

	dates, err := feed.DateRange(startDate, endDate)
	if err != nil {
		return rep, err
	}
	if len(dates) == 0 {
		return rep, fmt.Errorf("%w: end %s is before start %s", feed.ErrInvalidDate, endDate, startDate)
	}

	r.logger.Info().Str("start", startDate).Str("end", endDate).Int("days", len(dates)).Msg("reinitialize started")

	for _, date := range dates {
		if err := r.limiter.Wait(ctx); err != nil {
			return rep, fmt.Errorf("reinitialize interrupted at %s: %w", date, err)
		}
		day, err := r.ApplyDaily(ctx, date)
		if err != nil {
			return rep, err
		}
		rep.Days = append(rep.Days, day)
		if day.Empty {
			rep.DaysEmpty++
		} else {
			rep.DaysApplied++
		}
	}

	r.logger.Info().
		Int("applied", rep.DaysApplied).
		Int("empty", rep.DaysEmpty).
		Msg("reinitialize finished")

	return rep, nil
}
