package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	// Basic-auth credentials used by the station app.
	DeviceLogin    string
	DevicePassword string

	LogLevel  string
	LogFormat string
	LogOutput string

	TelegramToken  string
	TelegramChatID int64

	// Registration time slots, "HHhMM" wall-clock values.
	SlotStart    string
	SlotEnd      string
	SlotInterval time.Duration

	DashboardWindow      time.Duration
	ExternalRegistration string
}

// ParseFlags validates flags and falls back to environment variables.
// A dotenv file (default ".env") is loaded first if present; it never
// overrides variables that are already set.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	fs := flag.NewFlagSet("lost-tracker", flag.ContinueOnError)

	fs.StringVar(&envFile, "env-file", ".env", "dotenv file to load")

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.DeviceLogin, "device-login", "", "Station app login (prefer env)")
	fs.StringVar(&cfg.DevicePassword, "device-password", "", "Station app password (prefer env)")

	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 5000 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = GuessDatabaseType(cfg.DatabaseURL)
	}
	if cfg.DatabaseType != DatabasePostgres && cfg.DatabaseType != DatabaseSQLite {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.DeviceLogin == "" {
		cfg.DeviceLogin = os.Getenv("DEVICE_LOGIN")
	}
	if cfg.DevicePassword == "" {
		cfg.DevicePassword = os.Getenv("DEVICE_PASSWORD")
	}
	if (cfg.DeviceLogin == "") != (cfg.DevicePassword == "") {
		return Config{}, errors.New("DEVICE_LOGIN and DEVICE_PASSWORD must be set together")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	}
	cfg.LogFormat = os.Getenv("LOG_FORMAT")
	cfg.LogOutput = getEnv("LOG_OUTPUT", "stdout")

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, errors.New("invalid TELEGRAM_CHAT_ID env variable")
		}
		cfg.TelegramChatID = id
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return Config{}, errors.New("TELEGRAM_CHAT_ID required when TELEGRAM_BOT_TOKEN is set")
	}

	cfg.SlotStart = getEnv("SLOT_START", "18h00")
	cfg.SlotEnd = getEnv("SLOT_END", "22h00")

	var err error
	if cfg.SlotInterval, err = durationEnv("SLOT_INTERVAL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.DashboardWindow, err = durationEnv("DASHBOARD_WINDOW", 45*time.Minute); err != nil {
		return Config{}, err
	}

	cfg.ExternalRegistration = strings.TrimSpace(os.Getenv("EXTERNAL_REGISTRATION"))

	return cfg, nil
}

// GuessDatabaseType picks postgres for postgres URLs and key=value DSNs,
// sqlite for everything else.
func GuessDatabaseType(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") ||
		strings.Contains(url, "dbname=") {
		return DatabasePostgres
	}
	return DatabaseSQLite
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
