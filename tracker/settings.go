// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mamerwiselen/lost-tracker/models"
)

// EventDateLayout is the storage format of the event_date setting.
const EventDateLayout = "2006-01-02"

// settingConverter validates a raw JSON value for a setting key and
// returns its Go representation.
type settingConverter func(raw json.RawMessage) (any, error)

var settingConverters = map[string]settingConverter{
	models.SettingRegistrationOpen: convertBool,
	models.SettingEventDate:        convertDate,
	models.SettingHelpdesk:         convertString,
	models.SettingShout:            convertString,
	models.SettingEventLocation:    convertString,
	models.SettingLocationCoords:   convertString,
}

var settingDescriptions = map[string]string{
	models.SettingRegistrationOpen: "Whether new groups can register",
	models.SettingEventDate:        "Day of the event",
	models.SettingHelpdesk:         "Phone number shown to participants",
	models.SettingShout:            "Announcement shown on the front page",
	models.SettingEventLocation:    "Meeting point",
	models.SettingLocationCoords:   "Meeting point coordinates",
}

func convertBool(raw json.RawMessage) (any, error) {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.New("expected true or false")
	}
	return v, nil
}

func convertString(raw json.RawMessage) (any, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.New("expected a string")
	}
	return v, nil
}

// convertDate accepts "" (no date) or a YYYY-MM-DD string.
func convertDate(raw json.RawMessage) (any, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.New("expected a date string")
	}
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse(EventDateLayout, v); err != nil {
		return nil, fmt.Errorf("expected a date as %s", EventDateLayout)
	}
	return v, nil
}

func convertSetting(key string, raw json.RawMessage) (any, error) {
	conv, ok := settingConverters[key]
	if !ok {
		return nil, invalid("key", fmt.Sprintf("unknown setting %q", key))
	}
	v, err := conv(raw)
	if err != nil {
		return nil, invalid(key, err.Error())
	}
	return v, nil
}

// GetSetting returns the value stored for key, or def when it is unset.
func (t *Tracker) GetSetting(ctx context.Context, key string, def any) (any, error) {
	var raw string
	err := t.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = $1", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load setting: %w", err)
	}
	return convertSetting(key, json.RawMessage(raw))
}

// PutSetting validates and stores a setting given as JSON.
func (t *Tracker) PutSetting(ctx context.Context, key string, raw json.RawMessage) (models.Setting, error) {
	value, err := convertSetting(key, raw)
	if err != nil {
		return models.Setting{}, err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return models.Setting{}, fmt.Errorf("failed to encode setting: %w", err)
	}

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, description) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, string(encoded), settingDescriptions[key])
	if err != nil {
		return models.Setting{}, fmt.Errorf("failed to store setting: %w", err)
	}
	return models.Setting{Key: key, Value: value, Description: settingDescriptions[key]}, nil
}

// PutSettings stores several settings at once. Nothing is written if one
// of them is invalid.
func (t *Tracker) PutSettings(ctx context.Context, values map[string]json.RawMessage) error {
	encoded := make(map[string]string, len(values))
	for key, raw := range values {
		value, err := convertSetting(key, raw)
		if err != nil {
			return err
		}
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode setting: %w", err)
		}
		encoded[key] = string(b)
	}

	return t.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range encoded {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value, description) VALUES ($1, $2, $3)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
			`, key, value, settingDescriptions[key]); err != nil {
				return fmt.Errorf("failed to store setting %s: %w", key, err)
			}
		}
		return nil
	})
}

// AllSettings returns every stored setting, sorted by key.
func (t *Tracker) AllSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT key, value, description FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := []models.Setting{}
	for rows.Next() {
		var s models.Setting
		var raw string
		if err := rows.Scan(&s.Key, &raw, &s.Description); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		if s.Value, err = convertSetting(s.Key, json.RawMessage(raw)); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// RegistrationOpen reports whether new registrations are accepted. It is
// false until the setting is stored.
func (t *Tracker) RegistrationOpen(ctx context.Context) (bool, error) {
	v, err := t.GetSetting(ctx, models.SettingRegistrationOpen, false)
	if err != nil {
		return false, err
	}
	open, _ := v.(bool)
	return open, nil
}

// EventDate returns the configured event day, if any.
func (t *Tracker) EventDate(ctx context.Context) (*time.Time, error) {
	v, err := t.GetSetting(ctx, models.SettingEventDate, "")
	if err != nil {
		return nil, err
	}
	s, _ := v.(string)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(EventDateLayout, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
