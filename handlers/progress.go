// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

type ProgressHandler struct {
	tracker *tracker.Tracker
}

func NewProgressHandler(t *tracker.Tracker) *ProgressHandler {
	return &ProgressHandler{tracker: t}
}

// Advance handles GET and PUT /advance/{group}/{station}
func (h *ProgressHandler) Advance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.tracker.Advance(r.Context(), r.PathValue("group"), r.PathValue("station"))
	if err != nil {
		writeTrackerError(w, r, err, "advance group")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetState handles GET /group_state/{group}/{station}
func (h *ProgressHandler) GetState(w http.ResponseWriter, r *http.Request) {
	gs, err := h.tracker.GetState(r.Context(), r.PathValue("group"), r.PathValue("station"))
	if err != nil {
		writeTrackerError(w, r, err, "load state")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, gs)
}

// SetState handles PUT /group_state/{group}/{station}
//
// The station app sends form_score, score (older versions: station) and
// state. All three keys are required; null clears a score and leaves the
// state untouched.
func (h *ProgressHandler) SetState(w http.ResponseWriter, r *http.Request) {
	var req models.SetStateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	score := req.Score
	if !score.Set {
		score = req.StationScore
	}
	if !req.FormScore.Set || !score.Set || !req.State.Set {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing value")
		return
	}

	resp, err := h.tracker.SetScore(r.Context(), r.PathValue("group"), r.PathValue("station"),
		score.Value, req.FormScore.Value, req.State.Value)
	if err != nil {
		writeTrackerError(w, r, err, "store state")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// SetScore handles PUT /group/{group}/score/{station}
//
// Both form and station are required.
func (h *ProgressHandler) SetScore(w http.ResponseWriter, r *http.Request) {
	var req models.SetScoreRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !req.Form.Set || !req.Station.Set {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing value")
		return
	}

	resp, err := h.tracker.SetScore(r.Context(), r.PathValue("group"), r.PathValue("station"),
		req.Station.Value, req.Form.Value, nil)
	if err != nil {
		writeTrackerError(w, r, err, "store score")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}
