// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/mamerwiselen/lost-tracker/models"
)

// ScoreTotals sums station and form scores per group. Only groups that are
// not cancelled and have a start time count. Missing scores count as zero.
// Points per minute divide the total by the minutes elapsed since departure,
// up to the finish time or now for groups still on the route.
func (t *Tracker) ScoreTotals(ctx context.Context) ([]models.ScoreTotal, error) {
	type timing struct {
		departure, finish sql.NullTime
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT g.id, g.departure_time, g.finish_time
		FROM groups g
		WHERE NOT g.cancelled AND g.start_time IS NOT NULL AND g.start_time <> ''
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	eligible := make(map[int64]timing)
	for rows.Next() {
		var id int64
		var tm timing
		if err := rows.Scan(&id, &tm.departure, &tm.finish); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		eligible[id] = tm
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sums := make(map[int64]int)
	collect := func(query string) error {
		rows, err := t.db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to query scores: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id, sum int64
			if err := rows.Scan(&id, &sum); err != nil {
				return fmt.Errorf("failed to scan scores: %w", err)
			}
			if _, ok := eligible[id]; ok {
				sums[id] += int(sum)
			}
		}
		return rows.Err()
	}
	if err := collect(`
		SELECT group_id, COALESCE(SUM(COALESCE(score, 0) + COALESCE(form_score, 0)), 0)
		FROM group_station_state
		GROUP BY group_id
	`); err != nil {
		return nil, err
	}
	if err := collect(`
		SELECT group_id, COALESCE(SUM(score), 0)
		FROM form_scores
		GROUP BY group_id
	`); err != nil {
		return nil, err
	}

	now := t.clock()
	totals := make([]models.ScoreTotal, 0, len(sums))
	for id, sum := range sums {
		tm := eligible[id]
		totals = append(totals, models.ScoreTotal{
			GroupID:         id,
			ScoreSum:        sum,
			PointsPerMinute: pointsPerMinute(sum, tm.departure, tm.finish, now),
		})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].GroupID < totals[j].GroupID })
	return totals, nil
}

func pointsPerMinute(sum int, departure, finish sql.NullTime, now time.Time) float64 {
	if !departure.Valid {
		return 0
	}
	end := now
	if finish.Valid {
		end = finish.Time
	}
	minutes := end.Sub(departure.Time).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(sum) / minutes
}

// Scoreboard ranks groups by total score. Equal scores share a position and
// the next distinct score takes the following position. PPMPosition ranks
// the distinct points-per-minute values the same way.
func (t *Tracker) Scoreboard(ctx context.Context) ([]models.ScoreboardRow, error) {
	totals, err := t.ScoreTotals(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := t.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	board := make([]models.ScoreboardRow, 0, len(totals))
	for _, total := range totals {
		g := byID[total.GroupID]
		board = append(board, models.ScoreboardRow{
			GroupID:         total.GroupID,
			GroupName:       g.Name,
			TotalScore:      total.ScoreSum,
			PointsPerMinute: total.PointsPerMinute,
			HasCompleted:    g.Completed,
		})
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].TotalScore != board[j].TotalScore {
			return board[i].TotalScore > board[j].TotalScore
		}
		return board[i].GroupName < board[j].GroupName
	})

	ppmRanks := rankPPM(board)
	pos := 0
	for i := range board {
		if i == 0 || board[i].TotalScore != board[i-1].TotalScore {
			pos++
		}
		board[i].Position = pos
		board[i].PPMPosition = ppmRanks[board[i].PointsPerMinute]
	}
	return board, nil
}

func rankPPM(board []models.ScoreboardRow) map[float64]int {
	seen := make(map[float64]bool)
	var values []float64
	for _, row := range board {
		if !seen[row.PointsPerMinute] {
			seen[row.PointsPerMinute] = true
			values = append(values, row.PointsPerMinute)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	ranks := make(map[float64]int, len(values))
	for i, v := range values {
		ranks[v] = i + 1
	}
	return ranks
}

// Matrix is the dense grid of groups and stations. A nil cell means no
// progress has been recorded for that pair.
type Matrix struct {
	Stations []models.Station
	Rows     []models.MatrixRow
}

// BuildMatrix loads every group (display order) against every station
// (route order).
func (t *Tracker) BuildMatrix(ctx context.Context) (*Matrix, error) {
	stations, err := t.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := t.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, "SELECT "+progressColumns+" FROM group_station_state gss")
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	type pair struct{ group, station int64 }
	cells := make(map[pair]models.GroupStation)
	for rows.Next() {
		gs, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		cells[pair{gs.GroupID, gs.StationID}] = gs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	m := &Matrix{Stations: stations, Rows: make([]models.MatrixRow, 0, len(groups))}
	for _, g := range groups {
		row := models.MatrixRow{Group: g, States: make([]*models.GroupStation, len(stations))}
		for i, s := range stations {
			if gs, ok := cells[pair{g.ID, s.ID}]; ok {
				row.States[i] = &gs
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

// Sums counts the groups in each state per station column. Missing cells
// count as unknown.
func (m *Matrix) Sums() []models.MatrixSum {
	sums := make([]models.MatrixSum, len(m.Stations))
	for _, row := range m.Rows {
		for i, gs := range row.States {
			state := models.StateUnknown
			if gs != nil {
				state = gs.State
			}
			switch state {
			case models.StateUnknown:
				sums[i].Unknown++
			case models.StateArrived:
				sums[i].Arrived++
			case models.StateFinished:
				sums[i].Finished++
			}
		}
	}
	return sums
}

func (m *Matrix) Response() models.MatrixResponse {
	return models.MatrixResponse{Stations: m.Stations, Rows: m.Rows, Sums: m.Sums()}
}

// Dashboard collects what staff at a station need to see: every active
// group with its state at the station, and the groups recently seen at the
// neighbouring stations. Neighbour rows older than the dashboard window, or
// of groups already finished here, are left out.
func (t *Tracker) Dashboard(ctx context.Context, stationRef string) (models.Dashboard, error) {
	var d models.Dashboard

	s, err := resolveStation(ctx, t.db, stationRef)
	if err != nil {
		return d, err
	}
	d.Station = s

	if d.Neighbours, err = neighbours(ctx, t.db, s); err != nil {
		return d, err
	}

	groups, err := listGroups(ctx, t.db, "NOT g.cancelled")
	if err != nil {
		return d, err
	}
	active := make(map[int64]models.Group, len(groups))
	for _, g := range groups {
		active[g.ID] = g
	}

	here, err := progressByStation(ctx, t.db, s.ID)
	if err != nil {
		return d, err
	}

	finished := make(map[int64]bool)
	d.MainStates = make([]models.DashboardEntry, 0, len(groups))
	for _, g := range groups {
		entry := models.DashboardEntry{
			GroupStation: models.GroupStation{GroupID: g.ID, StationID: s.ID},
			GroupName:    g.Name,
		}
		if gs, ok := here[g.ID]; ok {
			entry.GroupStation = gs
			entry.Recorded = true
			if gs.State == models.StateFinished {
				finished[g.ID] = true
			}
		}
		d.MainStates = append(d.MainStates, entry)
	}
	sortEntries(d.MainStates, mainRank)

	threshold := t.clock().Add(-t.cfg.DashboardWindow)
	neighbourStates := func(n *models.Station) ([]models.DashboardEntry, error) {
		out := []models.DashboardEntry{}
		if n == nil {
			return out, nil
		}
		states, err := progressByStation(ctx, t.db, n.ID)
		if err != nil {
			return nil, err
		}
		for _, gs := range states {
			g, ok := active[gs.GroupID]
			if !ok || finished[gs.GroupID] || !gs.Updated.After(threshold) {
				continue
			}
			out = append(out, models.DashboardEntry{GroupStation: gs, GroupName: g.Name, Recorded: true})
		}
		sortEntries(out, neighbourRank)
		return out, nil
	}

	if d.BeforeStates, err = neighbourStates(d.Neighbours.Before); err != nil {
		return d, err
	}
	if d.AfterStates, err = neighbourStates(d.Neighbours.After); err != nil {
		return d, err
	}
	return d, nil
}

// mainRank lists groups still to be handled first: arrived, then unknown,
// then groups never seen, then finished.
func mainRank(e models.DashboardEntry) int {
	switch {
	case !e.Recorded:
		return 3
	case e.State == models.StateArrived:
		return 1
	case e.State == models.StateUnknown:
		return 2
	case e.State == models.StateFinished:
		return 90
	default:
		return 99
	}
}

// neighbourRank lists groups that left a neighbour first.
func neighbourRank(e models.DashboardEntry) int {
	switch e.State {
	case models.StateFinished:
		return 0
	case models.StateArrived:
		return 1
	case models.StateUnknown:
		return 2
	default:
		return 99
	}
}

func sortEntries(entries []models.DashboardEntry, rank func(models.DashboardEntry) int) {
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := rank(entries[i]), rank(entries[j])
		if ri != rj {
			return ri < rj
		}
		return entries[i].GroupName < entries[j].GroupName
	})
}

// StationDetails lists every group with its state at a station, ordered
// for the station page: arrived, unknown, finished, then cancelled groups.
func (t *Tracker) StationDetails(ctx context.Context, stationRef string) (models.StationDetails, error) {
	var details models.StationDetails

	s, err := resolveStation(ctx, t.db, stationRef)
	if err != nil {
		return details, err
	}
	details.Station = s

	groups, err := t.ListGroups(ctx)
	if err != nil {
		return details, err
	}
	states, err := progressByStation(ctx, t.db, s.ID)
	if err != nil {
		return details, err
	}
	if details.Questionnaires, err = t.ListForms(ctx); err != nil {
		return details, err
	}

	details.GroupStates = make([]models.GroupStateRow, 0, len(groups))
	for _, g := range groups {
		row := models.GroupStateRow{Group: g}
		if gs, ok := states[g.ID]; ok {
			row.State = &gs
		}
		details.GroupStates = append(details.GroupStates, row)
	}

	rank := func(r models.GroupStateRow) int {
		switch {
		case r.Group.Cancelled:
			return 80
		case r.State == nil || r.State.State == models.StateUnknown:
			return 1
		case r.State.State == models.StateArrived:
			return 0
		case r.State.State == models.StateFinished:
			return 2
		default:
			return 99
		}
	}
	sort.SliceStable(details.GroupStates, func(i, j int) bool {
		ri, rj := rank(details.GroupStates[i]), rank(details.GroupStates[j])
		if ri != rj {
			return ri < rj
		}
		return details.GroupStates[i].Group.Name < details.GroupStates[j].Group.Name
	})
	return details, nil
}
