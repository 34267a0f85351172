// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

type GroupHandler struct {
	tracker *tracker.Tracker
}

func NewGroupHandler(t *tracker.Tracker) *GroupHandler {
	return &GroupHandler{tracker: t}
}

// ListGroups handles GET /groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.tracker.ListGroups(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "list groups")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, groups)
}

// MyGroups handles GET /groups/mine
func (h *GroupHandler) MyGroups(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentPrincipal(r)
	if !ok || p.User == nil {
		middleware.ErrorResponse(w, http.StatusForbidden, "No user account")
		return
	}
	groups, err := h.tracker.GroupsByUser(r.Context(), p.User.ID)
	if err != nil {
		writeTrackerError(w, r, err, "list groups")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, groups)
}

// GetGroup handles GET /group/{id}
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.tracker.ResolveGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTrackerError(w, r, err, "load group")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, g)
}

// AddGroup handles POST /groups
func (h *GroupHandler) AddGroup(w http.ResponseWriter, r *http.Request) {
	var req models.AddGroupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	g, err := h.tracker.AddGroup(r.Context(), req)
	if err != nil {
		writeTrackerError(w, r, err, "add group")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, g)
}

// UpdateGroup handles PUT /group/{id}
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid group id")
		return
	}
	var req models.UpdateGroupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, _ := middleware.CurrentPrincipal(r)
	var by *models.User
	if p != nil {
		by = p.User
	}

	g, err := h.tracker.UpdateGroup(r.Context(), id, req, by)
	if err != nil {
		writeTrackerError(w, r, err, "update group")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, g)
}

// SetTimeSlot handles PUT /group/{group}/timeslot
func (h *GroupHandler) SetTimeSlot(w http.ResponseWriter, r *http.Request) {
	var req models.TimeSlotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	g, err := h.tracker.SetTimeSlot(r.Context(), r.PathValue("group"), req)
	if err != nil {
		writeTrackerError(w, r, err, "set time slot")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, g)
}

// DeleteGroup handles DELETE /group/{id}
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid group id")
		return
	}
	if err := h.tracker.DeleteGroup(r.Context(), id); err != nil {
		writeTrackerError(w, r, err, "delete group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Slots handles GET /slots
func (h *GroupHandler) Slots(w http.ResponseWriter, r *http.Request) {
	rows, err := h.tracker.SlotOverview(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "load slots")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, rows)
}

// Stats handles GET /stats
func (h *GroupHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracker.Stats(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "load stats")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stats)
}
