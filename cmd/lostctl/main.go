// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command lostctl administers a lost-tracker database from the shell.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/cliparse"
	"github.com/mamerwiselen/lost-tracker/db"
	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/notify"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

// options holds the persistent flags shared by all subcommands.
type options struct {
	databaseURL  string
	databaseType string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "lostctl",
		Short: "Administer a lost-tracker database",
		Long: `lostctl runs maintenance tasks against the lost-tracker database.

Available subcommands:
  migrate    - Apply pending schema migrations
  seed       - Load stations, forms, groups and users from a YAML file
  scoreboard - Print the current scoreboard
  user       - Manage user accounts`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			log, err := logger.New(&logger.Config{Level: level, Output: "stderr"}, "lostctl")
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(log)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.databaseURL, "database", "d", os.Getenv("DATABASE_URL"), "Database URL (or set DATABASE_URL env)")
	rootCmd.PersistentFlags().StringVarP(&opts.databaseType, "type", "t", os.Getenv("DATABASE_TYPE"), "Database type: sqlite or postgres")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newSeedCmd(opts))
	rootCmd.AddCommand(newScoreboardCmd(opts))
	rootCmd.AddCommand(newUserCmd(opts))

	return rootCmd
}

// open connects to the configured database and brings the schema up to
// date.
func (o *options) open() (*sql.DB, string, error) {
	if o.databaseURL == "" {
		return nil, "", fmt.Errorf("database URL required (use -d or DATABASE_URL env)")
	}
	dbType := o.databaseType
	if dbType == "" {
		dbType = cliparse.GuessDatabaseType(o.databaseURL)
	}

	conn, err := db.Open(dbType, o.databaseURL)
	if err != nil {
		return nil, "", err
	}
	if err := db.Migrate(conn, dbType); err != nil {
		conn.Close()
		return nil, "", err
	}
	return conn, dbType, nil
}

// tracker opens the database and returns a tracker that logs
// notifications instead of sending them.
func (o *options) tracker() (*tracker.Tracker, func(), error) {
	conn, dbType, err := o.open()
	if err != nil {
		return nil, nil, err
	}
	cfg := cliparse.Config{
		DatabaseURL:  o.databaseURL,
		DatabaseType: dbType,
		SlotStart:    "18h00",
		SlotEnd:      "22h00",
	}
	t := tracker.New(conn, cfg, notify.NewLog(zap.L()))
	return t, func() { conn.Close() }, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
