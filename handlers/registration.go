// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/cliparse"
	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

type RegistrationHandler struct {
	tracker *tracker.Tracker
	cfg     cliparse.Config
}

func NewRegistrationHandler(t *tracker.Tracker, cfg cliparse.Config) *RegistrationHandler {
	return &RegistrationHandler{tracker: t, cfg: cfg}
}

type registrationInfo struct {
	Open  bool     `json:"open"`
	Slots []string `json:"slots"`
}

// Info handles GET /registration
//
// When registrations are handled elsewhere, the client is redirected.
func (h *RegistrationHandler) Info(w http.ResponseWriter, r *http.Request) {
	if h.cfg.ExternalRegistration != "" {
		http.Redirect(w, r, h.cfg.ExternalRegistration, http.StatusFound)
		return
	}

	open, err := h.tracker.RegistrationOpen(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "load registration info")
		return
	}
	slots, err := h.tracker.TimeSlots()
	if err != nil {
		writeTrackerError(w, r, err, "load registration info")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, registrationInfo{Open: open, Slots: slots})
}

// Register handles POST /registrations
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.CurrentPrincipal(r)
	if !ok || p.User == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Registering requires a user account")
		return
	}

	if !p.HasRole(models.RoleAdmin) {
		open, err := h.tracker.RegistrationOpen(r.Context())
		if err != nil {
			writeTrackerError(w, r, err, "store registration")
			return
		}
		if !open {
			writeTrackerError(w, r, tracker.ErrRegistrationClosed, "store registration")
			return
		}
	}

	var req models.RegistrationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.UserID = &p.User.ID

	g, err := h.tracker.StoreRegistration(r.Context(), req)
	if err != nil {
		writeTrackerError(w, r, err, "store registration")
		return
	}

	zap.L().Info("registration received",
		zap.Int64(logger.FieldGroupID, g.ID),
		zap.Int64(logger.FieldUserID, p.User.ID),
	)

	// Self-service registrations go straight to the admins for review.
	if _, err := h.tracker.ConfirmRegistration(r.Context(), g.ConfirmationKey, acceptURL(r, g.ConfirmationKey)); err != nil {
		writeTrackerError(w, r, err, "store registration")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.RegistrationResponse{
		GroupID: g.ID,
		Message: "Registration received. You will be notified once it has been accepted.",
	})
}

// Confirm handles POST /registrations/{key}/confirm
func (h *RegistrationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	g, err := h.tracker.ConfirmRegistration(r.Context(), key, acceptURL(r, key))
	if err != nil {
		writeTrackerError(w, r, err, "confirm registration")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.RegistrationResponse{
		GroupID: g.ID,
		Message: "Registration confirmed",
	})
}

// Accept handles POST /registrations/{key}/accept
func (h *RegistrationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	g, err := h.tracker.GroupByKey(r.Context(), r.PathValue("key"))
	if err != nil {
		writeTrackerError(w, r, err, "accept registration")
		return
	}

	accepted, err := h.tracker.AcceptRegistration(r.Context(), g.ConfirmationKey)
	if err != nil {
		writeTrackerError(w, r, err, "accept registration")
		return
	}

	msg := "Registration accepted"
	if !accepted {
		msg = "Registration was already accepted"
	}
	middleware.JSONResponse(w, http.StatusOK, models.RegistrationResponse{GroupID: g.ID, Message: msg})
}

func acceptURL(r *http.Request, key string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/registrations/" + key + "/accept"
}
