// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the lost-tracker API server.

lost-tracker follows groups through a night-time orienteering event: station
staff record arrival, departure and scores for each group at each station,
and the organisers watch the matrix and scoreboard fill up.

# Starting the Server

The server reads its configuration from flags, the environment and an
optional .env file:

	DATABASE_URL=lost.db go run .

Or with flags:

	go run . -p 5000 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL URL or SQLite file
  - DEVICE_LOGIN / DEVICE_PASSWORD: shared station app login

Optional settings:

  - PORT (-p): Server port (default: 5000)
  - DATABASE_TYPE (-t): sqlite or postgres (guessed from the URL)
  - LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT: see package logger
  - TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID: send notifications to a chat
  - SLOT_START, SLOT_END, SLOT_INTERVAL: registration time slots
  - DASHBOARD_WINDOW: how long neighbour activity stays on a dashboard
  - EXTERNAL_REGISTRATION: redirect registrations to another site

# Architecture

  - tracker: groups, stations, progress, scores and registrations
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, basic auth, JSON helpers
  - models: Request/response types
  - notify: Notification templates and delivery
  - auth: Passwords, keys and device credentials
  - db: Connections and goose migrations
  - cliparse: Configuration parsing
  - logger: zap setup

The lostctl command (cmd/lostctl) handles migrations, seeding and user
administration from the shell.
*/
package main
