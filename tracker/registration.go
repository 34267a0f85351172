// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/notify"
)

// slotLayout is the wall-clock format used for start times, e.g. "18h30".
const slotLayout = "15h04"

const maxRegistrationAttempts = 5

var nonDigits = regexp.MustCompile(`[^0-9]`)

var errCollision = errors.New("unique value taken concurrently")

// StartTimeToOrder turns a start time into a display order by dropping all
// non-digits: "18h30" becomes 1830. Empty or unparsable values give 0.
func StartTimeToOrder(value string) int {
	digits := nonDigits.ReplaceAllString(value, "")
	if digits == "" {
		return 0
	}
	order, err := strconv.Atoi(digits)
	if err != nil {
		zap.L().Warn("unable to parse start time", zap.String("value", value), zap.Error(err))
		return 0
	}
	return order
}

// StoreRegistration records a new group registration and returns it. The
// group name must be unused. The confirmation key is regenerated until it
// is unique.
func (t *Tracker) StoreRegistration(ctx context.Context, req models.RegistrationRequest) (models.Group, error) {
	req.GroupName = strings.TrimSpace(req.GroupName)
	switch {
	case req.GroupName == "":
		return models.Group{}, invalid("group_name", "group name is required")
	case strings.TrimSpace(req.ContactName) == "":
		return models.Group{}, invalid("contact_name", "contact name is required")
	case req.NumParticipants < 0 || req.NumVegetarians < 0:
		return models.Group{}, invalid("num_participants", "counts cannot be negative")
	}

	var id int64
	var err error
	for attempt := 1; ; attempt++ {
		id, err = t.insertRegistration(ctx, req)
		if !errors.Is(err, errCollision) || attempt == maxRegistrationAttempts {
			break
		}
		zap.L().Debug("registration collided, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		return models.Group{}, err
	}

	zap.L().Info("registration stored",
		zap.Int64(logger.FieldGroupID, id),
		zap.String("group", req.GroupName),
	)
	return getGroup(ctx, t.db, id)
}

// insertRegistration stores the group in its own transaction. Losing a race
// for the confirmation key or display order yields errCollision.
func (t *Tracker) insertRegistration(ctx context.Context, req models.RegistrationRequest) (int64, error) {
	var id int64
	err := t.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM groups WHERE name = $1", req.GroupName).Scan(&n); err != nil {
			return fmt.Errorf("failed to check group name: %w", err)
		}
		if n > 0 {
			return &ValidationError{
				Field:   "group_name",
				Message: fmt.Sprintf("group %s already registered", req.GroupName),
				Err:     ErrGroupExists,
			}
		}

		key, err := t.uniqueKey(ctx, tx)
		if err != nil {
			return err
		}
		order, err := uniqueOrder(ctx, tx, "groups", StartTimeToOrder(req.Time), 0)
		if err != nil {
			return err
		}

		var userID sql.NullInt64
		if req.UserID != nil {
			userID = sql.NullInt64{Int64: *req.UserID, Valid: true}
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO groups (name, display_order, contact, phone, email, comments,
				start_time, num_vegetarians, num_participants, confirmation_key,
				user_id, inserted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`, req.GroupName, order, req.ContactName, req.Tel, req.Email, req.Comments,
			nullString(req.Time), req.NumVegetarians, req.NumParticipants, key,
			userID, t.clock()).Scan(&id)
		switch {
		case uniqueViolationOn(err, "groups", "name"):
			return &ValidationError{Field: "group_name", Message: "error while adding the new group", Err: ErrGroupExists}
		case uniqueViolationOn(err, "groups", "confirmation_key"), uniqueViolationOn(err, "groups", "display_order"):
			return fmt.Errorf("%w: %v", errCollision, err)
		case err != nil:
			return fmt.Errorf("failed to store registration: %w", err)
		}
		return nil
	})
	return id, err
}

func (t *Tracker) uniqueKey(ctx context.Context, q querier) (string, error) {
	for {
		key, err := t.newKey()
		if err != nil {
			return "", err
		}
		var n int
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM groups WHERE confirmation_key = $1", key).Scan(&n); err != nil {
			return "", fmt.Errorf("failed to check confirmation key: %w", err)
		}
		if n == 0 {
			return key, nil
		}
	}
}

// ConfirmRegistration marks the registration with the given key as
// confirmed and asks the admins to review it. Repeated confirmations are
// accepted without sending anything.
func (t *Tracker) ConfirmRegistration(ctx context.Context, key, activationURL string) (models.Group, error) {
	g, err := t.GroupByKey(ctx, key)
	if err != nil {
		return g, err
	}
	if g.IsConfirmed {
		zap.L().Debug("duplicate confirmation ignored", zap.Int64(logger.FieldGroupID, g.ID))
		return g, nil
	}

	if _, err := t.db.ExecContext(ctx,
		"UPDATE groups SET is_confirmed = TRUE, updated = $1 WHERE id = $2", t.clock(), g.ID); err != nil {
		return g, fmt.Errorf("failed to confirm registration: %w", err)
	}
	g.IsConfirmed = true

	admins, err := t.adminRecipients(ctx)
	if err != nil {
		return g, err
	}
	data := groupData(g)
	data["ActivationURL"] = activationURL
	t.notify(ctx, notify.TemplateRegistrationCheck, admins, data)
	return g, nil
}

// AcceptRegistration marks a registration as accepted and welcomes the
// group. It reports false if the group was accepted before.
func (t *Tracker) AcceptRegistration(ctx context.Context, key string) (bool, error) {
	g, err := t.GroupByKey(ctx, key)
	if err != nil {
		return false, err
	}
	if g.Accepted {
		return false, nil
	}

	if _, err := t.db.ExecContext(ctx,
		"UPDATE groups SET accepted = TRUE, updated = $1 WHERE id = $2", t.clock(), g.ID); err != nil {
		return false, fmt.Errorf("failed to accept registration: %w", err)
	}

	to, err := t.ownerRecipients(ctx, g)
	if err != nil {
		return false, err
	}
	t.notify(ctx, notify.TemplateWelcome, to, groupData(g))
	return true, nil
}

// TimeSlots lists the start slots from the configured start up to and
// excluding the configured end.
func (t *Tracker) TimeSlots() ([]string, error) {
	start, err := time.Parse(slotLayout, t.cfg.SlotStart)
	if err != nil {
		return nil, fmt.Errorf("invalid slot start %q: %w", t.cfg.SlotStart, err)
	}
	end, err := time.Parse(slotLayout, t.cfg.SlotEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid slot end %q: %w", t.cfg.SlotEnd, err)
	}
	if t.cfg.SlotInterval <= 0 {
		return nil, fmt.Errorf("invalid slot interval %s", t.cfg.SlotInterval)
	}

	var slots []string
	for s := start; s.Before(end); s = s.Add(t.cfg.SlotInterval) {
		slots = append(slots, s.Format(slotLayout))
	}
	return slots, nil
}

// SlotOverview assigns the non-cancelled groups to their slots, one column
// per direction.
func (t *Tracker) SlotOverview(ctx context.Context) ([]models.SlotRow, error) {
	slots, err := t.TimeSlots()
	if err != nil {
		return nil, err
	}
	groups, err := listGroups(ctx, t.db, "NOT g.cancelled")
	if err != nil {
		return nil, err
	}

	rows := make([]models.SlotRow, len(slots))
	index := make(map[string]int, len(slots))
	for i, s := range slots {
		rows[i].Slot = s
		index[s] = i
	}
	for i := range groups {
		g := &groups[i]
		pos, ok := index[g.StartTime]
		if !ok {
			continue
		}
		switch g.Direction {
		case models.DirA:
			rows[pos].DirA = g
		case models.DirB:
			rows[pos].DirB = g
		}
	}
	return rows, nil
}

// Stats reports how many of the available slots (one per direction) are
// taken.
func (t *Tracker) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups").Scan(&stats.Groups); err != nil {
		return stats, fmt.Errorf("failed to count groups: %w", err)
	}

	slots, err := t.TimeSlots()
	if err != nil {
		return stats, err
	}
	stats.Slots = len(slots) * 2
	stats.FreeSlots = stats.Slots - stats.Groups
	if stats.Slots > 0 {
		stats.Load = float64(stats.Groups) / float64(stats.Slots)
	}
	return stats, nil
}
