// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

type MessageHandler struct {
	tracker *tracker.Tracker
}

func NewMessageHandler(t *tracker.Tracker) *MessageHandler {
	return &MessageHandler{tracker: t}
}

// currentUser returns the logged-in user. The station app has none.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	p, ok := middleware.CurrentPrincipal(r)
	if !ok || p.User == nil {
		middleware.ErrorResponse(w, http.StatusForbidden, "A user account is required")
		return nil, false
	}
	return p.User, true
}

// mayAccessGroup reports whether the user can read or write the thread of
// a group: admins and staff see all groups, others only their own.
func (h *MessageHandler) mayAccessGroup(r *http.Request, u *models.User) (bool, error) {
	if u.HasRole(models.RoleAdmin) || u.HasRole(models.RoleStaff) {
		return true, nil
	}
	g, err := h.tracker.ResolveGroup(r.Context(), r.PathValue("group"))
	if err != nil {
		return false, err
	}
	return g.UserID != nil && *g.UserID == u.ID, nil
}

// ListMessages handles GET /group/{group}/messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	allowed, err := h.mayAccessGroup(r, u)
	if err != nil {
		writeTrackerError(w, r, err, "list messages")
		return
	}
	if !allowed {
		writeTrackerError(w, r, tracker.ErrForbidden, "list messages")
		return
	}

	messages, err := h.tracker.ListMessages(r.Context(), r.PathValue("group"))
	if err != nil {
		writeTrackerError(w, r, err, "list messages")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, messages)
}

// PostMessage handles POST /group/{group}/messages
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	allowed, err := h.mayAccessGroup(r, u)
	if err != nil {
		writeTrackerError(w, r, err, "store message")
		return
	}
	if !allowed {
		writeTrackerError(w, r, tracker.ErrForbidden, "store message")
		return
	}

	var req models.MessageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	url := "http://" + r.Host + r.URL.Path
	msg, err := h.tracker.StoreMessage(r.Context(), r.PathValue("group"), *u, req.Content, url)
	if err != nil {
		writeTrackerError(w, r, err, "store message")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, msg)
}

// DeleteMessage handles DELETE /message/{id}
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid message id")
		return
	}
	if err := h.tracker.DeleteMessage(r.Context(), id, *u); err != nil {
		writeTrackerError(w, r, err, "delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
