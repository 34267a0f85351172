// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mamerwiselen/lost-tracker/models"
)

func (t *Tracker) ListForms(ctx context.Context) ([]models.Form, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT id, name, max_score, display_order FROM forms ORDER BY display_order, name")
	if err != nil {
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}
	defer rows.Close()

	forms := []models.Form{}
	for rows.Next() {
		var f models.Form
		if err := rows.Scan(&f.ID, &f.Name, &f.MaxScore, &f.Order); err != nil {
			return nil, fmt.Errorf("failed to scan form: %w", err)
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// AddForm creates a questionnaire. A max score of 0 defaults to 100.
func (t *Tracker) AddForm(ctx context.Context, req models.AddFormRequest) (models.Form, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return models.Form{}, invalid("name", "name is required")
	}
	if req.MaxScore < 0 {
		return models.Form{}, invalid("max_score", "max score cannot be negative")
	}
	if req.MaxScore == 0 {
		req.MaxScore = 100
	}

	form := models.Form{Name: req.Name, MaxScore: req.MaxScore}
	err := t.withTx(ctx, func(tx *sql.Tx) error {
		order, err := uniqueOrder(ctx, tx, "forms", req.Order, 0)
		if err != nil {
			return err
		}
		form.Order = order
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO forms (name, max_score, display_order) VALUES ($1, $2, $3)
			RETURNING id
		`, form.Name, form.MaxScore, form.Order).Scan(&form.ID); err != nil {
			return fmt.Errorf("failed to add form: %w", err)
		}
		return nil
	})
	return form, err
}

func (t *Tracker) DeleteForm(ctx context.Context, id int64) error {
	result, err := t.db.ExecContext(ctx, "DELETE FROM forms WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if n == 0 {
		return ErrFormNotFound
	}
	return nil
}

func formExists(ctx context.Context, q querier, id int64) error {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM forms WHERE id = $1", id).Scan(&n); err != nil {
		return fmt.Errorf("failed to load form: %w", err)
	}
	if n == 0 {
		return ErrFormNotFound
	}
	return nil
}

// SetFormScore stores the score of a group on a questionnaire, replacing
// any previous one.
func (t *Tracker) SetFormScore(ctx context.Context, groupRef string, formID int64, score int) (models.FormScore, error) {
	fs := models.FormScore{FormID: formID, Score: score}
	err := t.withTx(ctx, func(tx *sql.Tx) error {
		g, err := resolveGroup(ctx, tx, groupRef)
		if err != nil {
			return err
		}
		if err := formExists(ctx, tx, formID); err != nil {
			return err
		}
		fs.GroupID = g.ID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO form_scores (group_id, form_id, score) VALUES ($1, $2, $3)
			ON CONFLICT (group_id, form_id) DO UPDATE SET score = EXCLUDED.score
		`, g.ID, formID, score)
		if err != nil {
			return fmt.Errorf("failed to store form score: %w", err)
		}
		return nil
	})
	return fs, err
}

// GetFormScore returns the score of a group on a questionnaire, 0 if none
// was recorded.
func (t *Tracker) GetFormScore(ctx context.Context, groupRef string, formID int64) (models.FormScore, error) {
	g, err := resolveGroup(ctx, t.db, groupRef)
	if err != nil {
		return models.FormScore{}, err
	}
	if err := formExists(ctx, t.db, formID); err != nil {
		return models.FormScore{}, err
	}

	fs := models.FormScore{GroupID: g.ID, FormID: formID}
	err = t.db.QueryRowContext(ctx,
		"SELECT score FROM form_scores WHERE group_id = $1 AND form_id = $2",
		g.ID, formID).Scan(&fs.Score)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fs, fmt.Errorf("failed to load form score: %w", err)
	}
	return fs, nil
}
