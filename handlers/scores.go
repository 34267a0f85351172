// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"ordinal": humanize.Ordinal,
	"stateName": func(gs *models.GroupStation) string {
		if gs == nil {
			return models.StateUnknown.String()
		}
		return gs.State.String()
	},
}).ParseFS(templateFS, "templates/*.html"))

type ScoreHandler struct {
	tracker *tracker.Tracker
}

func NewScoreHandler(t *tracker.Tracker) *ScoreHandler {
	return &ScoreHandler{tracker: t}
}

func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		zap.L().Error("failed to render page", zap.String("page", name), zap.Error(err))
	}
}

// Matrix handles GET /matrix
func (h *ScoreHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	m, err := h.tracker.BuildMatrix(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "build matrix")
		return
	}

	resp := m.Response()
	if middleware.WantsJSON(r) {
		middleware.JSONResponse(w, http.StatusOK, resp)
		return
	}
	renderPage(w, "matrix.html", resp)
}

// Scoreboard handles GET /scoreboard
func (h *ScoreHandler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.tracker.Scoreboard(r.Context())
	if err != nil {
		writeTrackerError(w, r, err, "build scoreboard")
		return
	}

	if middleware.WantsJSON(r) {
		middleware.JSONResponse(w, http.StatusOK, board)
		return
	}
	renderPage(w, "scoreboard.html", board)
}

// Dashboard handles GET /station/{name}/dashboard
func (h *ScoreHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.tracker.Dashboard(r.Context(), r.PathValue("name"))
	if err != nil {
		writeTrackerError(w, r, err, "load dashboard")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, d)
}

// StationDetails handles GET /station/{name}
func (h *ScoreHandler) StationDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.tracker.StationDetails(r.Context(), r.PathValue("name"))
	if err != nil {
		writeTrackerError(w, r, err, "load station")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, details)
}
