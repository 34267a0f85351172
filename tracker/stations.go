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

const stationColumns = "s.id, s.name, s.display_order, s.contact, s.phone, s.is_start, s.is_end"

func scanStation(row scanner) (models.Station, error) {
	var s models.Station
	err := row.Scan(&s.ID, &s.Name, &s.Order, &s.Contact, &s.Phone, &s.IsStart, &s.IsEnd)
	return s, err
}

func getStation(ctx context.Context, q querier, where string, arg any) (models.Station, error) {
	s, err := scanStation(q.QueryRowContext(ctx,
		"SELECT "+stationColumns+" FROM stations s WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrStationNotFound
	}
	if err != nil {
		return s, fmt.Errorf("failed to load station: %w", err)
	}
	return s, nil
}

// resolveStation looks a station up by numeric id, falling back to its name.
func resolveStation(ctx context.Context, q querier, ref string) (models.Station, error) {
	if id, ok := parseRef(ref); ok {
		s, err := getStation(ctx, q, "s.id = $1", id)
		if !errors.Is(err, ErrStationNotFound) {
			return s, err
		}
	}
	return getStation(ctx, q, "s.name = $1", ref)
}

// ResolveStation returns the station named or numbered by ref.
func (t *Tracker) ResolveStation(ctx context.Context, ref string) (models.Station, error) {
	return resolveStation(ctx, t.db, ref)
}

// ListStations returns all stations in route order.
func (t *Tracker) ListStations(ctx context.Context) ([]models.Station, error) {
	return listStations(ctx, t.db)
}

func listStations(ctx context.Context, q querier) ([]models.Station, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+stationColumns+" FROM stations s ORDER BY s.display_order, s.name")
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// SaveStation creates a station, or updates it when req.ID is set. Only one
// station can be the start and only one the end: flagging a station clears
// the flag everywhere else. Display order collisions are resolved by
// incrementing the requested order.
func (t *Tracker) SaveStation(ctx context.Context, req models.SaveStationRequest) (models.Station, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return models.Station{}, invalid("name", "name is required")
	}

	var id int64
	err := t.withTx(ctx, func(tx *sql.Tx) error {
		var exclude int64
		if req.ID != nil {
			if _, err := getStation(ctx, tx, "s.id = $1", *req.ID); err != nil {
				return err
			}
			exclude = *req.ID
		}

		order, err := uniqueOrder(ctx, tx, "stations", req.Order, exclude)
		if err != nil {
			return err
		}

		if req.IsStart {
			if _, err := tx.ExecContext(ctx,
				"UPDATE stations SET is_start = FALSE WHERE id <> $1", exclude); err != nil {
				return fmt.Errorf("failed to clear start station: %w", err)
			}
		}
		if req.IsEnd {
			if _, err := tx.ExecContext(ctx,
				"UPDATE stations SET is_end = FALSE WHERE id <> $1", exclude); err != nil {
				return fmt.Errorf("failed to clear end station: %w", err)
			}
		}

		if req.ID != nil {
			id = *req.ID
			_, err = tx.ExecContext(ctx, `
				UPDATE stations SET name = $1, display_order = $2, contact = $3,
					phone = $4, is_start = $5, is_end = $6
				WHERE id = $7
			`, req.Name, order, req.Contact, req.Phone, req.IsStart, req.IsEnd, id)
		} else {
			err = tx.QueryRowContext(ctx, `
				INSERT INTO stations (name, display_order, contact, phone, is_start, is_end)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, req.Name, order, req.Contact, req.Phone, req.IsStart, req.IsEnd).Scan(&id)
		}
		if isUniqueViolation(err) {
			return invalid("name", "another station with this name already exists")
		}
		if err != nil {
			return fmt.Errorf("failed to save station: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Station{}, err
	}
	return getStation(ctx, t.db, "s.id = $1", id)
}

// DeleteStation removes a station and all progress recorded at it.
func (t *Tracker) DeleteStation(ctx context.Context, id int64) error {
	result, err := t.db.ExecContext(ctx, "DELETE FROM stations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	if n == 0 {
		return ErrStationNotFound
	}
	return nil
}

// Neighbours returns the stations immediately before and after s in route
// order.
func (t *Tracker) Neighbours(ctx context.Context, s models.Station) (models.Neighbours, error) {
	return neighbours(ctx, t.db, s)
}

func neighbours(ctx context.Context, q querier, s models.Station) (models.Neighbours, error) {
	var n models.Neighbours

	before, err := getStation(ctx, q,
		"s.display_order = (SELECT MAX(display_order) FROM stations WHERE display_order < $1)", s.Order)
	switch {
	case err == nil:
		n.Before = &before
	case !errors.Is(err, ErrStationNotFound):
		return n, err
	}

	after, err := getStation(ctx, q,
		"s.display_order = (SELECT MIN(display_order) FROM stations WHERE display_order > $1)", s.Order)
	switch {
	case err == nil:
		n.After = &after
	case !errors.Is(err, ErrStationNotFound):
		return n, err
	}

	return n, nil
}
