// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse builds the server configuration from flags, the
environment and an optional dotenv file.

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Flags

	-env-file        dotenv file loaded before reading the environment (default .env)
	-p               listen port
	-d               database URL
	-t               database type, sqlite or postgres
	-device-login    station app login
	-device-password station app password
	-log-level       log level

# Environment

Flags win over environment variables. Variables from the dotenv file never
override ones already set.

	PORT                  listen port (default 5000)
	DATABASE_URL          required
	DATABASE_TYPE         guessed from DATABASE_URL when empty
	DEVICE_LOGIN          set together with DEVICE_PASSWORD
	DEVICE_PASSWORD
	LOG_LEVEL             default info
	LOG_FORMAT            json or console, picked from the terminal when empty
	LOG_OUTPUT            stdout, stderr or a file path
	TELEGRAM_BOT_TOKEN    enables Telegram notifications
	TELEGRAM_CHAT_ID      required with TELEGRAM_BOT_TOKEN
	SLOT_START            first registration slot (default 18h00)
	SLOT_END              slots end before this time (default 22h00)
	SLOT_INTERVAL         default 10m
	DASHBOARD_WINDOW      how long neighbour rows stay on a dashboard (default 45m)
	EXTERNAL_REGISTRATION registration page redirects here when set

GuessDatabaseType treats postgres:// URLs and key=value DSNs as postgres and
anything else as a sqlite file.
*/
package cliparse
