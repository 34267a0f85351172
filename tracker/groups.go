// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/notify"
)

const groupColumns = `g.id, g.name, g.display_order, g.cancelled, g.contact, g.phone,
	g.email, g.comments, g.direction, g.start_time, g.completed, g.departure_time,
	g.finish_time, g.num_vegetarians, g.num_participants, g.confirmation_key,
	g.is_confirmed, g.accepted, g.user_id, g.inserted, g.updated`

func scanGroup(row scanner) (models.Group, error) {
	var g models.Group
	var direction, startTime, key sql.NullString
	var departure, finish, updated sql.NullTime
	var userID sql.NullInt64

	err := row.Scan(
		&g.ID, &g.Name, &g.Order, &g.Cancelled, &g.Contact, &g.Phone,
		&g.Email, &g.Comments, &direction, &startTime, &g.Completed, &departure,
		&finish, &g.NumVegetarians, &g.NumParticipants, &key,
		&g.IsConfirmed, &g.Accepted, &userID, &g.Inserted, &updated,
	)
	if err != nil {
		return g, err
	}

	g.Direction = direction.String
	g.StartTime = startTime.String
	g.ConfirmationKey = key.String
	g.DepartureTime = timePtr(departure)
	g.FinishTime = timePtr(finish)
	g.Updated = timePtr(updated)
	if userID.Valid {
		id := userID.Int64
		g.UserID = &id
	}
	return g, nil
}

func getGroup(ctx context.Context, q querier, id int64) (models.Group, error) {
	g, err := scanGroup(q.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups g WHERE g.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrGroupNotFound
	}
	if err != nil {
		return g, fmt.Errorf("failed to load group: %w", err)
	}
	return g, nil
}

func getGroupByName(ctx context.Context, q querier, name string) (models.Group, error) {
	g, err := scanGroup(q.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups g WHERE g.name = $1", name))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrGroupNotFound
	}
	if err != nil {
		return g, fmt.Errorf("failed to load group: %w", err)
	}
	return g, nil
}

// resolveGroup looks a group up by numeric id, falling back to its name.
func resolveGroup(ctx context.Context, q querier, ref string) (models.Group, error) {
	if id, ok := parseRef(ref); ok {
		g, err := getGroup(ctx, q, id)
		if !errors.Is(err, ErrGroupNotFound) {
			return g, err
		}
	}
	return getGroupByName(ctx, q, ref)
}

// ResolveGroup returns the group named or numbered by ref.
func (t *Tracker) ResolveGroup(ctx context.Context, ref string) (models.Group, error) {
	return resolveGroup(ctx, t.db, ref)
}

func (t *Tracker) GetGroup(ctx context.Context, id int64) (models.Group, error) {
	return getGroup(ctx, t.db, id)
}

func (t *Tracker) GroupByKey(ctx context.Context, key string) (models.Group, error) {
	g, err := scanGroup(t.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups g WHERE g.confirmation_key = $1", key))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrGroupNotFound
	}
	if err != nil {
		return g, fmt.Errorf("failed to load group: %w", err)
	}
	return g, nil
}

func listGroups(ctx context.Context, q querier, where string, args ...any) ([]models.Group, error) {
	query := "SELECT " + groupColumns + " FROM groups g"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY g.display_order, g.name"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListGroups returns all groups in display order.
func (t *Tracker) ListGroups(ctx context.Context) ([]models.Group, error) {
	return listGroups(ctx, t.db, "")
}

// GroupsByUser returns the groups registered by a user.
func (t *Tracker) GroupsByUser(ctx context.Context, userID int64) ([]models.Group, error) {
	return listGroups(ctx, t.db, "g.user_id = $1", userID)
}

func validDirection(direction string) bool {
	return direction == models.DirA || direction == models.DirB
}

// AddGroup creates a group directly, bypassing the registration workflow.
// The display order is derived from the start time.
func (t *Tracker) AddGroup(ctx context.Context, req models.AddGroupRequest) (models.Group, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return models.Group{}, invalid("name", "name is required")
	}
	if !validDirection(req.Direction) {
		return models.Group{}, &ValidationError{
			Field:   "direction",
			Message: fmt.Sprintf("%q is not one of %q, %q", req.Direction, models.DirA, models.DirB),
			Err:     ErrInvalidDirection,
		}
	}

	var id int64
	err := t.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM groups WHERE name = $1", req.Name).Scan(&n); err != nil {
			return fmt.Errorf("failed to check group name: %w", err)
		}
		if n > 0 {
			return &ValidationError{Field: "name", Message: "another group with this name already exists", Err: ErrGroupExists}
		}

		order, err := uniqueOrder(ctx, tx, "groups", StartTimeToOrder(req.StartTime), 0)
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO groups (name, display_order, contact, phone, direction, start_time, inserted)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, req.Name, order, req.Contact, req.Phone, req.Direction, nullString(req.StartTime), t.clock()).Scan(&id)
	})
	if err != nil {
		return models.Group{}, err
	}
	return getGroup(ctx, t.db, id)
}

// DeleteGroup removes a group together with its progress, scores and
// messages.
func (t *Tracker) DeleteGroup(ctx context.Context, id int64) error {
	result, err := t.db.ExecContext(ctx, "DELETE FROM groups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if n == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// UpdateGroup edits a registration. Users other than admins may only edit
// groups they registered, and participant counts only while registration
// is open. Direction, start time and the cancelled/completed flags are
// admin-only. Unless req.SendEmail is false, the admins or the owner
// (req.NotificationRecipient) are told about the change.
func (t *Tracker) UpdateGroup(ctx context.Context, id int64, req models.UpdateGroupRequest, by *models.User) (models.Group, error) {
	current, err := getGroup(ctx, t.db, id)
	if err != nil {
		return current, err
	}

	isAdmin := by != nil && by.HasRole(models.RoleAdmin)
	if !isAdmin && (by == nil || current.UserID == nil || *current.UserID != by.ID) {
		return current, ErrForbidden
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return current, invalid("name", "name is required")
	}
	if req.Direction != nil && *req.Direction != "" && !validDirection(*req.Direction) {
		return current, &ValidationError{Field: "direction", Message: "unknown direction", Err: ErrInvalidDirection}
	}

	open, err := t.RegistrationOpen(ctx)
	if err != nil {
		return current, err
	}

	updated := current
	updated.Name = req.Name
	updated.Contact = req.Contact
	updated.Phone = req.Phone
	updated.Email = req.Email
	updated.Comments = req.Comments
	if isAdmin || open {
		updated.NumVegetarians = req.NumVegetarians
		updated.NumParticipants = req.NumParticipants
	}
	if isAdmin {
		if req.Direction != nil {
			updated.Direction = *req.Direction
		}
		if req.StartTime != nil {
			updated.StartTime = *req.StartTime
		}
		if req.Cancelled != nil {
			updated.Cancelled = *req.Cancelled
		}
		if req.Completed != nil {
			updated.Completed = *req.Completed
		}
	}

	err = t.withTx(ctx, func(tx *sql.Tx) error {
		order := current.Order
		if updated.StartTime != current.StartTime {
			var err error
			if order, err = uniqueOrder(ctx, tx, "groups", StartTimeToOrder(updated.StartTime), id); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE groups SET name = $1, contact = $2, phone = $3, email = $4,
				comments = $5, num_vegetarians = $6, num_participants = $7,
				direction = $8, start_time = $9, cancelled = $10, completed = $11,
				display_order = $12, updated = $13
			WHERE id = $14
		`, updated.Name, updated.Contact, updated.Phone, updated.Email,
			updated.Comments, updated.NumVegetarians, updated.NumParticipants,
			nullString(updated.Direction), nullString(updated.StartTime),
			updated.Cancelled, updated.Completed, order, t.clock(), id)
		if isUniqueViolation(err) {
			return &ValidationError{Field: "name", Message: "another group with this name already exists", Err: ErrGroupExists}
		}
		if err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}
		return nil
	})
	if err != nil {
		return current, err
	}

	if updated, err = getGroup(ctx, t.db, id); err != nil {
		return updated, err
	}

	if req.SendEmail != nil && !*req.SendEmail {
		return updated, nil
	}

	var to []notify.Recipient
	switch req.NotificationRecipient {
	case "admins":
		to, err = t.adminRecipients(ctx)
	case "owner":
		to, err = t.ownerRecipients(ctx, updated)
	default:
		zap.L().Warn("unexpected notification recipient",
			zap.String("recipient", req.NotificationRecipient),
			zap.Int64(logger.FieldGroupID, id),
		)
	}
	if err != nil {
		return updated, err
	}
	t.notify(ctx, notify.TemplateRegistrationUpdate, to, groupData(updated))
	return updated, nil
}

// SetTimeSlot moves a group to a start slot and direction. The display
// order follows the new slot.
func (t *Tracker) SetTimeSlot(ctx context.Context, groupRef string, req models.TimeSlotRequest) (models.Group, error) {
	if !validDirection(req.Direction) {
		return models.Group{}, &ValidationError{Field: "direction", Message: "unknown direction", Err: ErrInvalidDirection}
	}

	var id int64
	err := t.withTx(ctx, func(tx *sql.Tx) error {
		g, err := resolveGroup(ctx, tx, groupRef)
		if err != nil {
			return err
		}
		id = g.ID

		order := g.Order
		if req.NewSlot != g.StartTime {
			if order, err = uniqueOrder(ctx, tx, "groups", StartTimeToOrder(req.NewSlot), g.ID); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE groups SET direction = $1, start_time = $2, display_order = $3, updated = $4
			WHERE id = $5
		`, req.Direction, nullString(req.NewSlot), order, t.clock(), g.ID)
		if err != nil {
			return fmt.Errorf("failed to set time slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return getGroup(ctx, t.db, id)
}

func groupData(g models.Group) map[string]any {
	return map[string]any{
		"GroupName":       g.Name,
		"Contact":         g.Contact,
		"Phone":           g.Phone,
		"Email":           g.Email,
		"StartTime":       g.StartTime,
		"Direction":       g.Direction,
		"NumParticipants": g.NumParticipants,
		"NumVegetarians":  g.NumVegetarians,
		"Comments":        g.Comments,
		"Cancelled":       g.Cancelled,
	}
}
