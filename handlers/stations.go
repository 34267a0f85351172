// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

type StationHandler struct {
	tracker *tracker.Tracker
}

func NewStationHandler(t *tracker.Tracker) *StationHandler {
	return &StationHandler{tracker: t}
}

// ListStations handles GET /stations
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.tracker.ListStations(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "list stations")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stations)
}

// SaveStation handles POST /stations (create, or update when id is set)
func (h *StationHandler) SaveStation(w http.ResponseWriter, r *http.Request) {
	var req models.SaveStationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	station, err := h.tracker.SaveStation(r.Context(), req)
	if err != nil {
		writeTrackerError(w, r, err, "save station")
		return
	}

	status := http.StatusCreated
	if req.ID != nil {
		status = http.StatusOK
	}
	middleware.JSONResponse(w, status, station)
}

// DeleteStation handles DELETE /station/{id}
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid station id")
		return
	}
	if err := h.tracker.DeleteStation(r.Context(), id); err != nil {
		writeTrackerError(w, r, err, "delete station")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListForms handles GET /forms
func (h *StationHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.tracker.ListForms(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "list forms")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, forms)
}

// AddForm handles POST /forms
func (h *StationHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	var req models.AddFormRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	form, err := h.tracker.AddForm(r.Context(), req)
	if err != nil {
		writeTrackerError(w, r, err, "add form")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, form)
}

// DeleteForm handles DELETE /form/{id}
func (h *StationHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form id")
		return
	}
	if err := h.tracker.DeleteForm(r.Context(), id); err != nil {
		writeTrackerError(w, r, err, "delete form")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFormScore handles GET /group/{group}/form/{form}
func (h *StationHandler) GetFormScore(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(r, "form")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form id")
		return
	}
	fs, err := h.tracker.GetFormScore(r.Context(), r.PathValue("group"), formID)
	if err != nil {
		writeTrackerError(w, r, err, "load form score")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, fs)
}

// SetFormScore handles PUT /group/{group}/form/{form}
func (h *StationHandler) SetFormScore(w http.ResponseWriter, r *http.Request) {
	formID, ok := pathID(r, "form")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form id")
		return
	}
	var req models.FormScoreRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	fs, err := h.tracker.SetFormScore(r.Context(), r.PathValue("group"), formID, req.Score)
	if err != nil {
		writeTrackerError(w, r, err, "store form score")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, fs)
}
