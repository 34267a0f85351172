// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

type UserHandler struct {
	tracker *tracker.Tracker
}

func NewUserHandler(t *tracker.Tracker) *UserHandler {
	return &UserHandler{tracker: t}
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	u, err := h.tracker.CreateUser(r.Context(), req)
	if err != nil {
		writeTrackerError(w, r, err, "create user")
		return
	}

	zap.L().Info("user created", zap.Int64(logger.FieldUserID, u.ID), zap.Strings("roles", u.Roles))
	middleware.JSONResponse(w, http.StatusCreated, u)
}

// Me handles GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentPrincipal(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}
