// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mamerwiselen/lost-tracker/auth"
	"github.com/mamerwiselen/lost-tracker/cliparse"
	"github.com/mamerwiselen/lost-tracker/notify"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrStationNotFound    = errors.New("station not found")
	ErrFormNotFound       = errors.New("form not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrGroupExists        = errors.New("group already registered")
	ErrInvalidState       = errors.New("invalid progress state")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrForbidden          = errors.New("operation not permitted")
)

// ValidationError reports a rejected input value. It unwraps to the
// sentinel error describing the failure, if any.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Tracker implements the event operations on top of the database.
type Tracker struct {
	db       *sql.DB
	cfg      cliparse.Config
	notifier notify.Notifier
	now      func() time.Time
	newKey   func() (string, error)
}

func New(db *sql.DB, cfg cliparse.Config, notifier notify.Notifier) *Tracker {
	if cfg.DashboardWindow <= 0 {
		cfg.DashboardWindow = 45 * time.Minute
	}
	return &Tracker{
		db:       db,
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
		newKey:   auth.GenerateConfirmationKey,
	}
}

// WithClock replaces the time source. Used by tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// WithKeyGenerator replaces the confirmation key source. Used by tests.
func (t *Tracker) WithKeyGenerator(newKey func() (string, error)) *Tracker {
	t.newKey = newKey
	return t
}

func (t *Tracker) clock() time.Time {
	return t.now().UTC()
}

func (t *Tracker) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// notify sends a notification on a best-effort basis; delivery problems
// are logged and never fail the calling operation.
func (t *Tracker) notify(ctx context.Context, template string, to []notify.Recipient, data map[string]any) {
	if t.notifier == nil || len(to) == 0 {
		return
	}
	if err := t.notifier.Send(ctx, template, to, data); err != nil {
		zap.L().Warn("notification failed",
			zap.String("template", template),
			zap.Error(err),
		)
	}
}

// parseRef returns the numeric id in ref, if any.
func parseRef(ref string) (int64, bool) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// uniqueOrder returns the first display order >= order that is not used by
// another row of table. excludeID is ignored in the check (0 for new rows).
func uniqueOrder(ctx context.Context, q querier, table string, order int, excludeID int64) (int, error) {
	switch table {
	case "groups", "stations", "forms":
	default:
		return 0, fmt.Errorf("no display order on table %q", table)
	}

	query := "SELECT COUNT(*) FROM " + table + " WHERE display_order = $1 AND id <> $2"
	for {
		var n int
		if err := q.QueryRowContext(ctx, query, order, excludeID).Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to check display order: %w", err)
		}
		if n == 0 {
			return order, nil
		}
		order++
	}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// isUniqueViolation reports whether err is a unique constraint failure
// from either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// uniqueViolationOn reports whether err is a unique constraint failure on
// table.column. Postgres names the constraint <table>_<column>_key; sqlite
// names the column in the message.
func uniqueViolationOn(err error, table, column string) bool {
	if !isUniqueViolation(err) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint == table+"_"+column+"_key"
	}
	return strings.Contains(err.Error(), table+"."+column)
}
