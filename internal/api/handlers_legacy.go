// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package api

import (
	"net/http"

	"github.com/tomtom215/cfrecall/internal/models"
	"github.com/tomtom215/cfrecall/internal/validation"
	"github.com/tomtom215/cfrecall/internal/worker"
)

// legacyStatus is the body of the legacy write endpoints.
type legacyStatus struct {
	Status string `json:"status"`
	TaskID string `json:"task_id,omitempty"`
}

// LegacyRecall handles POST /cf_recall. The body is the bare recall result.
func (h *Handler) LegacyRecall(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRecall(w, r, r.FormValue("user_id"), r.FormValue("top_k"))
	if !ok {
		return
	}
	res, err := h.recall(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// LegacyUpdate handles POST /update: apply the default day's batch.
func (h *Handler) LegacyUpdate(w http.ResponseWriter, r *http.Request) {
	req := models.BatchRequest{Date: r.FormValue("date")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	h.legacySubmit(w, r, TaskApplyBatch, "update in progress", h.applyTask(h.batchDate(req.Date)))
}

// LegacySave handles POST /save with form-encoded paths.
func (h *Handler) LegacySave(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.validateLocations(w, r, legacyLocations(r))
	if !ok {
		return
	}
	h.legacySubmit(w, r, TaskSave, "save in progress", h.saveTask(loc))
}

// LegacyLoad handles POST /load with form-encoded paths.
func (h *Handler) LegacyLoad(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.validateLocations(w, r, legacyLocations(r))
	if !ok {
		return
	}
	h.legacySubmit(w, r, TaskLoad, "load in progress", h.loadTask(loc))
}

func legacyLocations(r *http.Request) models.PersistRequest {
	return models.PersistRequest{
		RegistryLocation:  r.FormValue("indices_path"),
		LongTermLocation:  r.FormValue("long_term_path"),
		ShortTermLocation: r.FormValue("short_term_path"),
	}
}

func (h *Handler) legacySubmit(w http.ResponseWriter, r *http.Request, kind, status string, fn worker.TaskFunc) {
	accepted, err := h.enqueue(r, kind, fn)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, legacyStatus{Status: status, TaskID: accepted.TaskID})
}
