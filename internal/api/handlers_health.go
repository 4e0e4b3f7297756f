// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package api

import (
	"net/http"

	"github.com/tomtom215/cfrecall/internal/models"
)

// HealthLive handles GET /health/live. It only proves the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthStatus{Status: "ok"})
}

// HealthReady handles GET /health/ready: 200 once startup loading finished.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	st := h.model.Stats()
	body := models.HealthStatus{
		Status:     "ready",
		Users:      st.Users,
		Items:      st.Items,
		QueueDepth: h.queue.Len(),
	}
	if !h.ready.Load() {
		body.Status = "starting"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
