// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamerwiselen/lost-tracker/logger"
	"github.com/mamerwiselen/lost-tracker/models"
)

const progressColumns = "gss.group_id, gss.station_id, gss.state, gss.score, gss.form_score, gss.updated"

func scanProgress(row scanner) (models.GroupStation, error) {
	var gs models.GroupStation
	var state int
	var score, formScore sql.NullInt64

	if err := row.Scan(&gs.GroupID, &gs.StationID, &state, &score, &formScore, &gs.Updated); err != nil {
		return gs, err
	}
	gs.State = models.State(state)
	gs.StationScore = intPtr(score)
	gs.FormScore = intPtr(formScore)
	gs.Updated = gs.Updated.UTC()
	return gs, nil
}

// loadProgress returns the stored row for a pair, or nil if none exists.
func loadProgress(ctx context.Context, q querier, groupID, stationID int64) (*models.GroupStation, error) {
	gs, err := scanProgress(q.QueryRowContext(ctx,
		"SELECT "+progressColumns+" FROM group_station_state gss WHERE gss.group_id = $1 AND gss.station_id = $2",
		groupID, stationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return &gs, nil
}

// GetState returns the progress of a group at a station. Pairs without a
// stored row report StateUnknown; no row is created.
func (t *Tracker) GetState(ctx context.Context, groupRef, stationRef string) (models.GroupStation, error) {
	g, err := resolveGroup(ctx, t.db, groupRef)
	if err != nil {
		return models.GroupStation{}, err
	}
	s, err := resolveStation(ctx, t.db, stationRef)
	if err != nil {
		return models.GroupStation{}, err
	}

	gs, err := loadProgress(ctx, t.db, g.ID, s.ID)
	if err != nil {
		return models.GroupStation{}, err
	}
	if gs == nil {
		return models.GroupStation{GroupID: g.ID, StationID: s.ID, State: models.StateUnknown}, nil
	}
	return *gs, nil
}

// Advance moves a group to the next state at a station:
// unknown -> arrived -> finished -> unknown. A missing row counts as
// unknown. Arriving at the start station stamps the group's departure time,
// finishing at the end station stamps its finish time and marks it
// completed. Both stamps are written once. When two first taps race, the
// later one overwrites the row instead of failing.
func (t *Tracker) Advance(ctx context.Context, groupRef, stationRef string) (models.AdvanceResponse, error) {
	var resp models.AdvanceResponse

	err := t.withTx(ctx, func(tx *sql.Tx) error {
		g, err := resolveGroup(ctx, tx, groupRef)
		if err != nil {
			return err
		}
		s, err := resolveStation(ctx, tx, stationRef)
		if err != nil {
			return err
		}

		current, err := loadProgress(ctx, tx, g.ID, s.ID)
		if err != nil {
			return err
		}

		now := t.clock()
		next := models.StateArrived
		if current == nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO group_station_state (group_id, station_id, state, updated)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (group_id, station_id) DO UPDATE SET
					state = EXCLUDED.state,
					updated = EXCLUDED.updated
			`, g.ID, s.ID, int(next), now)
		} else {
			if next, err = current.State.Next(); err != nil {
				return fmt.Errorf("group %d at station %d: %w: %v", g.ID, s.ID, ErrInvalidState, err)
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE group_station_state SET state = $1, updated = $2
				WHERE group_id = $3 AND station_id = $4
			`, int(next), now, g.ID, s.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to store progress: %w", err)
		}

		if err := stampTimes(ctx, tx, g, s, next, now); err != nil {
			return err
		}

		resp = models.AdvanceResponse{GroupID: g.ID, StationID: s.ID, NewState: next}
		return nil
	})
	if err != nil {
		return resp, err
	}

	zap.L().Debug("group advanced",
		zap.Int64(logger.FieldGroupID, resp.GroupID),
		zap.Int64(logger.FieldStationID, resp.StationID),
		zap.Stringer("state", resp.NewState),
	)
	return resp, nil
}

// SetScore stores both scores of a group at a station, creating the row
// if needed. A nil score clears it. The state is only written when given,
// with the same timestamp side effects as Advance.
func (t *Tracker) SetScore(ctx context.Context, groupRef, stationRef string, stationScore, formScore *int, state *models.State) (models.SetStateResponse, error) {
	if state != nil && !state.Valid() {
		return models.SetStateResponse{}, &ValidationError{
			Field:   "state",
			Message: fmt.Sprintf("%d is not a valid state", int(*state)),
			Err:     ErrInvalidState,
		}
	}

	var resp models.SetStateResponse
	err := t.withTx(ctx, func(tx *sql.Tx) error {
		g, err := resolveGroup(ctx, tx, groupRef)
		if err != nil {
			return err
		}
		s, err := resolveStation(ctx, tx, stationRef)
		if err != nil {
			return err
		}

		now := t.clock()
		var stored int
		if state != nil {
			err = tx.QueryRowContext(ctx, `
				INSERT INTO group_station_state (group_id, station_id, state, score, form_score, updated)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (group_id, station_id) DO UPDATE SET
					state = EXCLUDED.state,
					score = EXCLUDED.score,
					form_score = EXCLUDED.form_score,
					updated = EXCLUDED.updated
				RETURNING state
			`, g.ID, s.ID, int(*state), nullInt(stationScore), nullInt(formScore), now).Scan(&stored)
		} else {
			err = tx.QueryRowContext(ctx, `
				INSERT INTO group_station_state (group_id, station_id, state, score, form_score, updated)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (group_id, station_id) DO UPDATE SET
					score = EXCLUDED.score,
					form_score = EXCLUDED.form_score,
					updated = EXCLUDED.updated
				RETURNING state
			`, g.ID, s.ID, int(models.StateUnknown), nullInt(stationScore), nullInt(formScore), now).Scan(&stored)
		}
		if err != nil {
			return fmt.Errorf("failed to store score: %w", err)
		}

		if state != nil {
			if err := stampTimes(ctx, tx, g, s, *state, now); err != nil {
				return err
			}
		}

		st := models.State(stored)
		resp = models.SetStateResponse{
			GroupName:   g.Name,
			GroupID:     g.ID,
			StationName: s.Name,
			StationID:   s.ID,
			FormScore:   formScore,
			Score:       stationScore,
			State:       &st,
		}
		return nil
	})
	return resp, err
}

// stampTimes records the departure and finish times of g after it reached
// state at s. Existing values are kept.
func stampTimes(ctx context.Context, tx *sql.Tx, g models.Group, s models.Station, state models.State, now time.Time) error {
	if s.IsStart && g.DepartureTime == nil &&
		(state == models.StateArrived || state == models.StateFinished) {
		if _, err := tx.ExecContext(ctx,
			"UPDATE groups SET departure_time = $1, updated = $1 WHERE id = $2 AND departure_time IS NULL",
			now, g.ID); err != nil {
			return fmt.Errorf("failed to stamp departure: %w", err)
		}
	}

	if s.IsEnd && g.FinishTime == nil && state == models.StateFinished {
		if _, err := tx.ExecContext(ctx,
			"UPDATE groups SET finish_time = $1, completed = TRUE, updated = $1 WHERE id = $2 AND finish_time IS NULL",
			now, g.ID); err != nil {
			return fmt.Errorf("failed to stamp finish: %w", err)
		}
	}
	return nil
}

// progressByStation returns all stored rows for a station.
func progressByStation(ctx context.Context, q querier, stationID int64) (map[int64]models.GroupStation, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+progressColumns+" FROM group_station_state gss WHERE gss.station_id = $1", stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]models.GroupStation)
	for rows.Next() {
		gs, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out[gs.GroupID] = gs
	}
	return out, rows.Err()
}
