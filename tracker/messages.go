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

// StoreMessage appends a message to a group's thread and notifies the
// admins and the group owner. url points readers to the thread.
func (t *Tracker) StoreMessage(ctx context.Context, groupRef string, author models.User, content, url string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, invalid("content", "message is empty")
	}

	g, err := resolveGroup(ctx, t.db, groupRef)
	if err != nil {
		return models.Message{}, err
	}

	name := author.Name
	if name == "" {
		name = author.Login
	}

	msg := models.Message{
		GroupID:  g.ID,
		UserID:   author.ID,
		Author:   name,
		Content:  content,
		Inserted: t.clock(),
	}
	if err := t.db.QueryRowContext(ctx, `
		INSERT INTO messages (group_id, user_id, content, inserted)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, msg.GroupID, msg.UserID, msg.Content, msg.Inserted).Scan(&msg.ID); err != nil {
		return msg, fmt.Errorf("failed to store message: %w", err)
	}

	admins, err := t.adminRecipients(ctx)
	if err != nil {
		return msg, err
	}
	owner, err := t.ownerRecipients(ctx, g)
	if err != nil {
		return msg, err
	}

	t.notify(ctx, notify.TemplateNewMessage, mergeRecipients(admins, owner), map[string]any{
		"GroupName": g.Name,
		"Author":    name,
		"Content":   content,
		"URL":       url,
	})

	zap.L().Info("message stored",
		zap.Int64(logger.FieldGroupID, g.ID),
		zap.Int64(logger.FieldUserID, author.ID),
	)
	return msg, nil
}

// ListMessages returns the thread of a group, oldest first.
func (t *Tracker) ListMessages(ctx context.Context, groupRef string) ([]models.Message, error) {
	g, err := resolveGroup(ctx, t.db, groupRef)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT m.id, m.group_id, m.user_id, COALESCE(NULLIF(u.name, ''), u.login), m.content, m.inserted, m.updated
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.inserted, m.id
	`, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var updated sql.NullTime
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Author, &m.Content, &m.Inserted, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Inserted = m.Inserted.UTC()
		m.Updated = timePtr(updated)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteMessage removes a message. Only its author or an admin may do so.
func (t *Tracker) DeleteMessage(ctx context.Context, id int64, by models.User) error {
	var authorID int64
	err := t.db.QueryRowContext(ctx, "SELECT user_id FROM messages WHERE id = $1", id).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}
	if authorID != by.ID && !by.HasRole(models.RoleAdmin) {
		return ErrForbidden
	}

	if _, err := t.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
