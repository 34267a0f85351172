// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

// writeTrackerError maps errors returned by the tracker to HTTP responses.
// Unexpected errors are logged and reported as "Failed to <action>".
func writeTrackerError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.ErrorResponse(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, tracker.ErrGroupNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Group not found")
	case errors.Is(err, tracker.ErrStationNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Station not found")
	case errors.Is(err, tracker.ErrFormNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Form not found")
	case errors.Is(err, tracker.ErrMessageNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Message not found")
	case errors.Is(err, tracker.ErrUserNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
	case errors.Is(err, tracker.ErrRegistrationClosed):
		middleware.ErrorResponse(w, http.StatusForbidden, "Registration is closed")
	case errors.Is(err, tracker.ErrForbidden):
		middleware.ErrorResponse(w, http.StatusForbidden, "Insufficient permissions")
	default:
		zap.L().Error("failed to "+action,
			zap.Error(err),
			zap.String(logger.FieldRequestID, middleware.RequestID(r.Context())),
		)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// pathID parses a numeric path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil
}
