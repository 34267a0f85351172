package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamerwiselen/lost-tracker/cliparse"
	"github.com/mamerwiselen/lost-tracker/db"
	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/notify"
	"github.com/mamerwiselen/lost-tracker/router"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("error parsing flags: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logger.DefaultServiceName)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	// Connect and migrate
	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", zap.Error(err))
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn, cfg.DatabaseType); err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}
	logSchemaVersion(log, conn, cfg.DatabaseType)

	var notifier notify.Notifier = notify.NewLog(log)
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Error("telegram setup failed", zap.Error(err))
			return err
		}
		notifier = tg
		log.Info("notifications via telegram", zap.Int64("chat_id", cfg.TelegramChatID))
	}

	t := tracker.New(conn, cfg, notifier)
	mux := router.NewRouter(t, cfg)

	server := &http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server closed", zap.Error(err))
		return err
	}
	log.Info("server closed")
	return nil
}

// logSchemaVersion reports the migrated schema version. A failed lookup is
// only a warning since the migrations already succeeded.
func logSchemaVersion(log *zap.Logger, conn *sql.DB, dbType string) {
	version, err := db.Version(conn, dbType)
	if err != nil {
		log.Warn("unable to read schema version", zap.String("type", dbType), zap.Error(err))
		return
	}
	log.Info("database ready", zap.String("type", dbType), zap.Int64("version", version))
}
