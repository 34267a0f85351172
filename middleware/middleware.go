// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/auth"
	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/models"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type contextKey int

const (
	requestIDKey contextKey = iota
	principalKey
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// WithLogging wraps a handler with request logging. Each request gets an
// id, taken from the X-Request-ID header when present.
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		zap.L().Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", GetClientIP(r)),
			zap.Int("status", rec.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String(logger.FieldRequestID, id),
		)
	}
}

// RequestID returns the id assigned by WithLogging.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// WantsJSON reports whether the client prefers JSON over HTML, either
// through the Accept header or a format=json query parameter.
func WantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mediaType {
		case "text/html":
			return false
		case "application/json":
			return true
		}
	}
	return false
}

// CORS middleware allows cross-origin requests from the station app
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Principal is the authenticated caller of a request. Device is set for
// the station app, which logs in with the shared device credentials and
// has no user row.
type Principal struct {
	User   *models.User `json:"user,omitempty"`
	Device bool         `json:"device"`
	Roles  []string     `json:"roles"`
}

func (p *Principal) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range p.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Authenticator checks user credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (models.User, error)
}

// Credentials are the shared station app login.
type Credentials struct {
	Login    string
	Password string
}

// BasicAuth requires HTTP basic authentication. The device credentials
// grant the staff role; everything else is checked against the users.
func BasicAuth(authn Authenticator, device Credentials) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			login, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			var p *Principal
			if auth.CheckDeviceCredentials(login, password, device.Login, device.Password) == nil {
				p = &Principal{Device: true, Roles: []string{models.RoleStaff}}
			} else {
				u, err := authn.Authenticate(r.Context(), login, password)
				if errors.Is(err, auth.ErrInvalidCredentials) {
					unauthorized(w)
					return
				}
				if err != nil {
					zap.L().Error("authentication failed",
						zap.Error(err),
						zap.String(logger.FieldRequestID, RequestID(r.Context())),
					)
					ErrorResponse(w, http.StatusInternalServerError, "Authentication failed")
					return
				}
				p = &Principal{User: &u, Roles: u.Roles}
			}

			next(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		}
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Login Required"`)
	ErrorResponse(w, http.StatusUnauthorized, "Could not verify your access level for that URL")
}

// RequireRole lets requests through whose principal has one of roles.
// It must run inside BasicAuth.
func RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := CurrentPrincipal(r)
		if !ok {
			unauthorized(w)
			return
		}
		if !p.HasRole(roles...) {
			ErrorResponse(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		next(w, r)
	}
}

// CurrentPrincipal returns the caller authenticated by BasicAuth.
func CurrentPrincipal(r *http.Request) (*Principal, bool) {
	p, ok := r.Context().Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// GetClientIP extracts the client IP address
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}
