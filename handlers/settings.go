// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

type SettingsHandler struct {
	tracker *tracker.Tracker
}

func NewSettingsHandler(t *tracker.Tracker) *SettingsHandler {
	return &SettingsHandler{tracker: t}
}

// GetSettings handles GET /settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.tracker.AllSettings(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "load settings")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, settings)
}

// PutSettings handles PUT /settings with a {"key": value, ...} object.
func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]json.RawMessage
	if err := middleware.ParseJSONBody(r, &values); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.tracker.PutSettings(r.Context(), values); err != nil {
		writeTrackerError(w, r, err, "store settings")
		return
	}
	h.GetSettings(w, r)
}
