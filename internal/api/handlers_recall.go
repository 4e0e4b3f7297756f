// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cfrecall/internal/logging"
	"github.com/tomtom215/cfrecall/internal/metrics"
	"github.com/tomtom215/cfrecall/internal/models"
	"github.com/tomtom215/cfrecall/internal/recall"
	"github.com/tomtom215/cfrecall/internal/validation"
)

// Recall handles GET /api/v1/recall/{userID}.
func (h *Handler) Recall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := h.parseRecall(w, r, chi.URLParam(r, "userID"), r.URL.Query().Get("top_k"))
	if !ok {
		return
	}

	res, err := h.recall(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, res, start)
}

// parseRecall builds and validates a RecallRequest, writing a 400 on failure.
func (h *Handler) parseRecall(w http.ResponseWriter, r *http.Request, userID, rawTopK string) (models.RecallRequest, bool) {
	req := models.RecallRequest{UserID: userID, TopK: DefaultTopK}
	if rawTopK != "" {
		k, err := strconv.Atoi(rawTopK)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, CodeValidation, "top_k must be an integer",
				map[string]any{"field": "top_k"})
			return req, false
		}
		req.TopK = k
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return req, false
	}
	return req, true
}

// recall runs one recall on the read pool and records its outcome.
func (h *Handler) recall(ctx context.Context, req models.RecallRequest) (recall.Result, error) {
	start := time.Now()
	var res recall.Result
	var known bool
	err := h.pool.Do(ctx, func(ctx context.Context) error {
		res, known = h.model.Lookup(ctx, req.UserID, req.TopK)
		return nil
	})
	if err != nil {
		metrics.RecordRecall("rejected", time.Since(start))
		return recall.Result{}, err
	}

	outcome := "ok"
	if !known {
		outcome = "cold_start"
		logging.Ctx(ctx).Debug().Str("user_id", sanitizeLogValue(req.UserID)).Msg("recall for unknown user")
	}
	metrics.RecordRecall(outcome, time.Since(start))
	return res, nil
}
