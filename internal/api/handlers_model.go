// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cfrecall/internal/feed"
	"github.com/tomtom215/cfrecall/internal/logging"
	"github.com/tomtom215/cfrecall/internal/models"
	"github.com/tomtom215/cfrecall/internal/recall"
	"github.com/tomtom215/cfrecall/internal/validation"
	"github.com/tomtom215/cfrecall/internal/worker"
)

// ApplyBatch handles POST /api/v1/batches.
func (h *Handler) ApplyBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeInvalidBody, "invalid JSON body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	h.submit(w, r, TaskApplyBatch, h.applyTask(h.batchDate(req.Date)))
}

// SaveModel handles POST /api/v1/model/save.
func (h *Handler) SaveModel(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.persistLocations(w, r)
	if !ok {
		return
	}
	h.submit(w, r, TaskSave, h.saveTask(loc))
}

// LoadModel handles POST /api/v1/model/load.
func (h *Handler) LoadModel(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.persistLocations(w, r)
	if !ok {
		return
	}
	h.submit(w, r, TaskLoad, h.loadTask(loc))
}

// Reinitialize handles POST /api/v1/model/reinitialize.
func (h *Handler) Reinitialize(w http.ResponseWriter, r *http.Request) {
	var req models.ReinitializeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeInvalidBody, "invalid JSON body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	if req.EndDate != "" && req.EndDate < req.StartDate {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "end_date must not be before start_date",
			map[string]any{"field": "end_date"})
		return
	}
	h.submit(w, r, TaskReinitialize, func(ctx context.Context) (any, error) {
		return h.runner.Reinitialize(ctx, req.StartDate, req.EndDate)
	})
}

// Stats handles GET /api/v1/model/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var st recall.Stats
	if err := h.pool.Do(r.Context(), func(context.Context) error {
		st = h.model.Stats()
		return nil
	}); err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, st, start)
}

// TaskStatus handles GET /api/v1/tasks/{taskID}.
func (h *Handler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	st, ok := h.queue.Status(id)
	if !ok {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "task not found", map[string]any{"task_id": sanitizeLogValue(id)})
		return
	}
	respondSuccess(w, r, http.StatusOK, st, time.Time{})
}

func (h *Handler) persistLocations(w http.ResponseWriter, r *http.Request) (recall.Locations, bool) {
	var req models.PersistRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeInvalidBody, "invalid JSON body", nil)
		return recall.Locations{}, false
	}
	return h.validateLocations(w, r, req)
}

func (h *Handler) validateLocations(w http.ResponseWriter, r *http.Request, req models.PersistRequest) (recall.Locations, bool) {
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return recall.Locations{}, false
	}
	loc := recall.Locations{
		Registry:  req.RegistryLocation,
		LongTerm:  req.LongTermLocation,
		ShortTerm: req.ShortTermLocation,
	}.WithDefaults(h.locations)
	if loc.Registry == loc.LongTerm || loc.Registry == loc.ShortTerm || loc.LongTerm == loc.ShortTerm {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "locations must be distinct", nil)
		return recall.Locations{}, false
	}
	return loc, true
}

func (h *Handler) batchDate(date string) string {
	if date != "" {
		return date
	}
	return feed.Today(h.now(), h.lagDays)
}

func (h *Handler) applyTask(date string) worker.TaskFunc {
	return func(ctx context.Context) (any, error) {
		return h.runner.ApplyDaily(ctx, date)
	}
}

func (h *Handler) saveTask(loc recall.Locations) worker.TaskFunc {
	return func(ctx context.Context) (any, error) {
		return loc, h.model.Save(ctx, loc)
	}
}

func (h *Handler) loadTask(loc recall.Locations) worker.TaskFunc {
	return func(ctx context.Context) (any, error) {
		if err := h.model.Load(ctx, loc); err != nil {
			return nil, err
		}
		return h.model.Stats(), nil
	}
}

// enqueue submits a write task and returns its acceptance body.
func (h *Handler) enqueue(r *http.Request, kind string, fn worker.TaskFunc) (models.TaskAccepted, error) {
	id, err := h.queue.Submit(kind, fn)
	if err != nil {
		return models.TaskAccepted{}, err
	}
	logging.Ctx(r.Context()).Info().Str("task_id", id).Str("kind", kind).Msg("write task accepted")
	return models.TaskAccepted{TaskID: id, Kind: kind, StatusURL: "/api/v1/tasks/" + id}, nil
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind string, fn worker.TaskFunc) {
	accepted, err := h.enqueue(r, kind, fn)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, accepted, time.Time{})
}
