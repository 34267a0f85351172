// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the lost-tracker API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(tracker, cfg)

# Access Levels

Routes are wrapped in one of four chains:

  - public: request logging only
  - user: any valid login (user account or station app)
  - staff: the station app, staff or admin users
  - admin: admin users

Logins use HTTP basic auth. The station app shares the device
credentials from the configuration (DEVICE_LOGIN, DEVICE_PASSWORD).

# Endpoints

Public:

	GET  /health
	GET  /matrix
	GET  /scoreboard
	GET  /registration
	POST /registrations/{key}/confirm

Station app:

	GET|PUT /advance/{group}/{station}
	GET|PUT /group_state/{group}/{station}
	PUT     /group/{group}/score/{station}
	GET     /station/{name}
	GET     /station/{name}/dashboard
	GET|PUT /group/{group}/form/{form}

Users:

	POST /registrations
	GET  /groups/mine
	GET  /group/{id}
	PUT  /group/{id}
	GET  /group/{group}/messages
	POST /group/{group}/messages
	DELETE /message/{id}
	GET  /me

Admin:

	POST   /stations, DELETE /station/{id}
	POST   /forms, DELETE /form/{id}
	POST   /registrations/{key}/accept
	POST   /groups, DELETE /group/{id}
	PUT    /group/{group}/timeslot
	GET    /slots, GET /stats
	GET    /settings, PUT /settings
	POST   /users
*/
package router
