// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mamerwiselen/lost-tracker/auth"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/notify"
)

const userColumns = "u.id, u.login, u.name, u.email, u.password_hash, u.locale"

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.PasswordHash, &u.Locale)
	return u, err
}

func (t *Tracker) loadUser(ctx context.Context, where string, arg any) (models.User, error) {
	u, err := scanUser(t.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("failed to load user: %w", err)
	}

	rows, err := t.db.QueryContext(ctx,
		"SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role", u.ID)
	if err != nil {
		return u, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	u.Roles = []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return u, fmt.Errorf("failed to scan role: %w", err)
		}
		u.Roles = append(u.Roles, role)
	}
	return u, rows.Err()
}

func (t *Tracker) UserByLogin(ctx context.Context, login string) (models.User, error) {
	return t.loadUser(ctx, "u.login = $1", login)
}

func (t *Tracker) GetUser(ctx context.Context, id int64) (models.User, error) {
	return t.loadUser(ctx, "u.id = $1", id)
}

// CreateUser stores a new user with a bcrypt password hash.
func (t *Tracker) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" {
		return models.User{}, invalid("login", "login is required")
	}
	for _, role := range req.Roles {
		if role != models.RoleAdmin && role != models.RoleStaff {
			return models.User{}, invalid("roles", fmt.Sprintf("unknown role %q", role))
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyPassword) {
			return models.User{}, &ValidationError{Field: "password", Message: "password is required", Err: err}
		}
		return models.User{}, err
	}

	var id int64
	err = t.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (login, name, email, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, req.Login, req.Name, req.Email, hash).Scan(&id)
		if isUniqueViolation(err) {
			return invalid("login", "login already taken")
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		for _, role := range req.Roles {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				id, role); err != nil {
				return fmt.Errorf("failed to assign role: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return t.GetUser(ctx, id)
}

// Authenticate checks a login/password pair. Unknown logins and wrong
// passwords both yield auth.ErrInvalidCredentials.
func (t *Tracker) Authenticate(ctx context.Context, login, password string) (models.User, error) {
	u, err := t.UserByLogin(ctx, login)
	if errors.Is(err, ErrUserNotFound) {
		return models.User{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// usersByRole returns name/e-mail pairs of all users with role.
func (t *Tracker) usersByRole(ctx context.Context, role string) ([]notify.Recipient, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT u.name, u.email
		FROM users u
		JOIN user_roles r ON r.user_id = u.id
		WHERE r.role = $1 AND u.email <> ''
		ORDER BY u.id
	`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []notify.Recipient
	for rows.Next() {
		var r notify.Recipient
		if err := rows.Scan(&r.Name, &r.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *Tracker) adminRecipients(ctx context.Context) ([]notify.Recipient, error) {
	return t.usersByRole(ctx, models.RoleAdmin)
}

// ownerRecipients addresses the user who registered g, falling back to the
// group's own contact e-mail.
func (t *Tracker) ownerRecipients(ctx context.Context, g models.Group) ([]notify.Recipient, error) {
	if g.UserID != nil {
		u, err := t.GetUser(ctx, *g.UserID)
		switch {
		case err == nil && u.Email != "":
			return []notify.Recipient{{Name: g.Name, Email: u.Email}}, nil
		case err != nil && !errors.Is(err, ErrUserNotFound):
			return nil, err
		}
	}
	if g.Email == "" {
		return nil, nil
	}
	return []notify.Recipient{{Name: g.Contact, Email: g.Email}}, nil
}

// mergeRecipients joins recipient lists, dropping duplicate addresses.
func mergeRecipients(lists ...[]notify.Recipient) []notify.Recipient {
	seen := make(map[string]bool)
	var out []notify.Recipient
	for _, list := range lists {
		for _, r := range list {
			key := strings.ToLower(r.Email)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}
