// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and applies schema migrations.

# Connecting

Open accepts the configured database type and DSN:

	conn, err := db.Open("postgres", "postgres://...")
	conn, err := db.Open("sqlite", "lost.db")

SQLite connections get foreign keys and a busy timeout enabled.

# Migrations

Migrations are embedded SQL files run with goose, one directory per
dialect:

	migrations/postgres/00001_init.sql
	migrations/sqlite/00001_init.sql

Migrate is safe to call on every start:

	if err := db.Migrate(conn, cfg.DatabaseType); err != nil {
		zap.L().Fatal("migration failed", zap.Error(err))
	}

# Tables

  - users, user_roles: logins and their admin/staff roles
  - groups: registered teams
  - stations: checkpoints on the route
  - forms, form_scores: questionnaires and per-group results
  - group_station_state: progress of a group at a station
  - messages: comment threads per group
  - settings: event-wide JSON values

# Relationships

	groups 1──* group_station_state *──1 stations
	groups 1──* form_scores *──1 forms
	groups 1──* messages *──1 users
	users 1──* groups (registration owner)

Display orders of groups, stations and forms are UNIQUE so that
neighbour lookups by order are deterministic.
*/
package db
