// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package api

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/cfrecall/internal/ingest"
	"github.com/tomtom215/cfrecall/internal/recall"
	"github.com/tomtom215/cfrecall/internal/worker"
)

// RecallModel is the model surface the handlers use.
type RecallModel interface {
	Lookup(ctx context.Context, userID string, topK int) (recall.Result, bool)
	Stats() recall.Stats
	Save(ctx context.Context, loc recall.Locations) error
	Load(ctx context.Context, loc recall.Locations) error
}

// BatchRunner applies feed batches.
type BatchRunner interface {
	ApplyDaily(ctx context.Context, date string) (ingest.Report, error)
	Reinitialize(ctx context.Context, startDate, endDate string) (ingest.ReplayReport, error)
}

// TaskQueue accepts write tasks.
type TaskQueue interface {
	Submit(kind string, fn worker.TaskFunc) (string, error)
	Status(id string) (worker.TaskStatus, bool)
	Len() int
}

// ReadPool bounds concurrent reads.
type ReadPool interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Task kinds.
const (
	TaskApplyBatch   = "apply_batch"
	TaskSave         = "save"
	TaskLoad         = "load"
	TaskReinitialize = "reinitialize"
)

// DefaultTopK is used when a recall request names no top_k.
const DefaultTopK = 10

// Deps are the collaborators of a Handler.
type Deps struct {
	Model     RecallModel
	Runner    BatchRunner
	Queue     TaskQueue
	Pool      ReadPool
	Locations recall.Locations
	// LagDays picks the default batch date: today minus LagDays.
	LagDays int
}

// Handler serves the HTTP API.
type Handler struct {
	model     RecallModel
	runner    BatchRunner
	queue     TaskQueue
	pool      ReadPool
	locations recall.Locations
	lagDays   int
	now       func() time.Time
	ready     atomic.Bool
}

// NewHandler creates a Handler. It reports not ready until SetReady(true).
func NewHandler(deps Deps) *Handler {
	return &Handler{
		model:     deps.Model,
		runner:    deps.Runner,
		queue:     deps.Queue,
		pool:      deps.Pool,
		locations: deps.Locations.WithDefaults(recall.DefaultLocations()),
		lagDays:   deps.LagDays,
		now:       time.Now,
	}
}

// SetReady flips the readiness probe.
func (h *Handler) SetReady(ready bool) { h.ready.Store(ready) }
