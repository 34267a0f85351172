// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Every request gets an id (X-Request-ID, generated when missing) which is
echoed in the response and logged with method, path, status and duration.

# Authentication

BasicAuth resolves the caller to a Principal. The station app uses the
shared device credentials and is treated as staff; people log in with their
user account. RequireRole restricts a handler to some roles:

	auth := middleware.BasicAuth(tracker, middleware.Credentials{...})
	mux.HandleFunc("PUT /advance/{group}/{station}",
		middleware.WithLogging(auth(middleware.RequireRole(h.Advance, models.RoleStaff, models.RoleAdmin))))

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

WantsJSON picks between the HTML and JSON rendering of a page from the
Accept header.
*/
package middleware
