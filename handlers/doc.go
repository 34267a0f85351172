// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the lost-tracker API.

# Handler Types

Each handler is a struct built on a *tracker.Tracker:

  - ProgressHandler: state and score updates from the station app
  - ScoreHandler: matrix, scoreboard, station dashboard
  - StationHandler: stations and questionnaires (forms)
  - RegistrationHandler: group registration workflow
  - GroupHandler: group administration, time slots, stats
  - MessageHandler: per-group message threads
  - SettingsHandler: event settings
  - UserHandler: user accounts

Handlers are created via constructor functions:

	progress := handlers.NewProgressHandler(t)

# Station App

	GET|PUT /advance/{group}/{station}     → Advance
	GET     /group_state/{group}/{station} → GetState
	PUT     /group_state/{group}/{station} → SetState

Group and station references are names or numeric ids. SetState accepts
form_score, score (or the older station) and an optional state.

# Pages

/matrix and /scoreboard render HTML unless the client asks for JSON
(Accept: application/json or ?format=json).

# Errors

Tracker errors are mapped to status codes in one place: validation
errors give 400, unknown groups/stations/forms give 404, permission
problems give 403, anything else is logged and reported as 500.
*/
package handlers
