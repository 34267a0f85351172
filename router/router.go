// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/mamerwiselen/lost-tracker/cliparse"
	"github.com/mamerwiselen/lost-tracker/handlers"
	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

func NewRouter(t *tracker.Tracker, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	progressHandler := handlers.NewProgressHandler(t)
	scoreHandler := handlers.NewScoreHandler(t)
	stationHandler := handlers.NewStationHandler(t)
	registrationHandler := handlers.NewRegistrationHandler(t, cfg)
	groupHandler := handlers.NewGroupHandler(t)
	messageHandler := handlers.NewMessageHandler(t)
	settingsHandler := handlers.NewSettingsHandler(t)
	userHandler := handlers.NewUserHandler(t)

	authenticated := middleware.BasicAuth(t, middleware.Credentials{
		Login:    cfg.DeviceLogin,
		Password: cfg.DevicePassword,
	})
	public := middleware.WithLogging
	user := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(authenticated(h))
	}
	staff := func(h http.HandlerFunc) http.HandlerFunc {
		return user(middleware.RequireRole(h, models.RoleStaff, models.RoleAdmin))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return user(middleware.RequireRole(h, models.RoleAdmin))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public pages
	mux.HandleFunc("GET /matrix", public(scoreHandler.Matrix))
	mux.HandleFunc("GET /scoreboard", public(scoreHandler.Scoreboard))

	// Station app
	mux.HandleFunc("GET /advance/{group}/{station}", staff(progressHandler.Advance))
	mux.HandleFunc("PUT /advance/{group}/{station}", staff(progressHandler.Advance))
	mux.HandleFunc("GET /group_state/{group}/{station}", staff(progressHandler.GetState))
	mux.HandleFunc("PUT /group_state/{group}/{station}", staff(progressHandler.SetState))
	mux.HandleFunc("PUT /group/{group}/score/{station}", staff(progressHandler.SetScore))
	mux.HandleFunc("GET /station/{name}", staff(scoreHandler.StationDetails))
	mux.HandleFunc("GET /station/{name}/dashboard", staff(scoreHandler.Dashboard))

	// Stations and questionnaires
	mux.HandleFunc("GET /stations", staff(stationHandler.ListStations))
	mux.HandleFunc("POST /stations", admin(stationHandler.SaveStation))
	mux.HandleFunc("DELETE /station/{id}", admin(stationHandler.DeleteStation))
	mux.HandleFunc("GET /forms", staff(stationHandler.ListForms))
	mux.HandleFunc("POST /forms", admin(stationHandler.AddForm))
	mux.HandleFunc("DELETE /form/{id}", admin(stationHandler.DeleteForm))
	mux.HandleFunc("GET /group/{group}/form/{form}", staff(stationHandler.GetFormScore))
	mux.HandleFunc("PUT /group/{group}/form/{form}", staff(stationHandler.SetFormScore))

	// Registration
	mux.HandleFunc("GET /registration", public(registrationHandler.Info))
	mux.HandleFunc("POST /registrations", user(registrationHandler.Register))
	mux.HandleFunc("POST /registrations/{key}/confirm", public(registrationHandler.Confirm))
	mux.HandleFunc("POST /registrations/{key}/accept", admin(registrationHandler.Accept))

	// Groups
	mux.HandleFunc("GET /groups", staff(groupHandler.ListGroups))
	mux.HandleFunc("POST /groups", admin(groupHandler.AddGroup))
	mux.HandleFunc("GET /groups/mine", user(groupHandler.MyGroups))
	mux.HandleFunc("GET /group/{id}", user(groupHandler.GetGroup))
	mux.HandleFunc("PUT /group/{id}", user(groupHandler.UpdateGroup))
	mux.HandleFunc("DELETE /group/{id}", admin(groupHandler.DeleteGroup))
	mux.HandleFunc("PUT /group/{group}/timeslot", admin(groupHandler.SetTimeSlot))
	mux.HandleFunc("GET /slots", admin(groupHandler.Slots))
	mux.HandleFunc("GET /stats", admin(groupHandler.Stats))

	// Messages
	mux.HandleFunc("GET /group/{group}/messages", user(messageHandler.ListMessages))
	mux.HandleFunc("POST /group/{group}/messages", user(messageHandler.PostMessage))
	mux.HandleFunc("DELETE /message/{id}", user(messageHandler.DeleteMessage))

	// Settings and users
	mux.HandleFunc("GET /settings", admin(settingsHandler.GetSettings))
	mux.HandleFunc("PUT /settings", admin(settingsHandler.PutSettings))
	mux.HandleFunc("POST /users", admin(userHandler.CreateUser))
	mux.HandleFunc("GET /me", user(userHandler.Me))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("lost-tracker API v1"))
	})

	return mux
}
