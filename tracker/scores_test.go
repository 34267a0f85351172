// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/testutil"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

func TestScoreTotalsNullCountsAsZero(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	g := testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestStation(t, env, "Bridge", 1, false, false)

	_, err := env.Tracker.SetScore(ctx, "Alpha", "Bridge", intp(10), nil, nil)
	require.NoError(t, err)

	totals, err := env.Tracker.ScoreTotals(ctx)
	require.NoError(t, err)
	want := []models.ScoreTotal{{GroupID: g.ID, ScoreSum: 10}}
	if diff := cmp.Diff(want, totals); diff != "" {
		t.Errorf("ScoreTotals mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreTotalsSkipsCancelledAndUnscheduled(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	active := testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	cancelled := testutil.CreateTestGroup(t, env, "Bravo", "18h10")
	testutil.CreateTestGroup(t, env, "Charlie", "")
	testutil.CreateTestStation(t, env, "Bridge", 1, false, false)

	admin := testutil.CreateTestUser(t, env, "admin", "pw", models.RoleAdmin)
	yes := true
	_, err := env.Tracker.UpdateGroup(ctx, cancelled.ID, models.UpdateGroupRequest{
		Name:      cancelled.Name,
		Cancelled: &yes,
		SendEmail: new(bool),
	}, &admin)
	require.NoError(t, err)

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		_, err := env.Tracker.SetScore(ctx, name, "Bridge", intp(4), intp(1), nil)
		require.NoError(t, err)
	}
	form, err := env.Tracker.AddForm(ctx, models.AddFormRequest{Name: "Quiz"})
	require.NoError(t, err)
	_, err = env.Tracker.SetFormScore(ctx, "Alpha", form.ID, 20)
	require.NoError(t, err)

	totals, err := env.Tracker.ScoreTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, active.ID, totals[0].GroupID)
	assert.Equal(t, 25, totals[0].ScoreSum)
}

func TestScoreTotalsPointsPerMinute(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestGroup(t, env, "Bravo", "18h10")
	testutil.CreateTestStation(t, env, "Start", 1, true, false)
	testutil.CreateTestStation(t, env, "Finish", 2, false, true)

	// Alpha finishes after 20 minutes with 40 points.
	_, err := env.Tracker.Advance(ctx, "Alpha", "Start")
	require.NoError(t, err)
	// Bravo is still on the route.
	_, err = env.Tracker.Advance(ctx, "Bravo", "Start")
	require.NoError(t, err)

	env.Clock.Advance(20 * time.Minute)
	finished := models.StateFinished
	_, err = env.Tracker.SetScore(ctx, "Alpha", "Finish", intp(40), nil, &finished)
	require.NoError(t, err)
	_, err = env.Tracker.SetScore(ctx, "Bravo", "Start", intp(30), nil, nil)
	require.NoError(t, err)

	env.Clock.Advance(10 * time.Minute)
	totals, err := env.Tracker.ScoreTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.InDelta(t, 2.0, totals[0].PointsPerMinute, 1e-9)
	assert.InDelta(t, 1.0, totals[1].PointsPerMinute, 1e-9, "unfinished groups use the current time")
}

func TestScoreboardPositions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTestGroup(t, env, "Bravo", "18h00")
	testutil.CreateTestGroup(t, env, "Alpha", "18h10")
	testutil.CreateTestGroup(t, env, "Charlie", "18h20")
	testutil.CreateTestStation(t, env, "Start", 1, true, false)
	testutil.CreateTestStation(t, env, "Finish", 2, false, true)

	_, err := env.Tracker.Advance(ctx, "Alpha", "Start")
	require.NoError(t, err)
	_, err = env.Tracker.SetScore(ctx, "Alpha", "Start", intp(10), nil, nil)
	require.NoError(t, err)
	env.Clock.Advance(10 * time.Minute)
	finished := models.StateFinished
	_, err = env.Tracker.SetScore(ctx, "Alpha", "Finish", nil, nil, &finished)
	require.NoError(t, err)

	_, err = env.Tracker.SetScore(ctx, "Bravo", "Finish", intp(6), intp(4), nil)
	require.NoError(t, err)
	_, err = env.Tracker.SetScore(ctx, "Charlie", "Finish", intp(5), nil, nil)
	require.NoError(t, err)

	board, err := env.Tracker.Scoreboard(ctx)
	require.NoError(t, err)

	want := []models.ScoreboardRow{
		{Position: 1, GroupName: "Alpha", TotalScore: 10, PointsPerMinute: 1, PPMPosition: 1, HasCompleted: true},
		{Position: 1, GroupName: "Bravo", TotalScore: 10, PointsPerMinute: 0, PPMPosition: 2},
		{Position: 2, GroupName: "Charlie", TotalScore: 5, PointsPerMinute: 0, PPMPosition: 2},
	}
	opts := cmpopts.IgnoreFields(models.ScoreboardRow{}, "GroupID")
	if diff := cmp.Diff(want, board, opts, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Scoreboard mismatch (-want +got):\n%s", diff)
	}
}

func TestMatrixSums(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestGroup(t, env, "Bravo", "18h10")
	testutil.CreateTestStation(t, env, "Bridge", 1, false, false)

	_, err := env.Tracker.Advance(ctx, "Bravo", "Bridge")
	require.NoError(t, err)

	m, err := env.Tracker.BuildMatrix(ctx)
	require.NoError(t, err)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, "Alpha", m.Rows[0].Group.Name)
	assert.Nil(t, m.Rows[0].States[0])
	require.NotNil(t, m.Rows[1].States[0])
	assert.Equal(t, models.StateArrived, m.Rows[1].States[0].State)

	assert.Equal(t, []models.MatrixSum{{Unknown: 1, Arrived: 1, Finished: 0}}, m.Sums())
}

func TestMatrixSumsWithoutGroups(t *testing.T) {
	m := &tracker.Matrix{Stations: []models.Station{{Name: "A"}, {Name: "B"}}}
	assert.Equal(t, []models.MatrixSum{{}, {}}, m.Sums())
}

func TestMatrixIsDense(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestStation(t, env, "Second", 2, false, false)
	testutil.CreateTestStation(t, env, "First", 1, false, false)
	testutil.CreateTestStation(t, env, "Third", 3, false, false)

	_, err := env.Tracker.Advance(ctx, "Alpha", "Third")
	require.NoError(t, err)

	resp, err := env.Tracker.BuildMatrix(ctx)
	require.NoError(t, err)
	r := resp.Response()

	names := make([]string, 0, len(r.Stations))
	for _, s := range r.Stations {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, names)
	require.Len(t, r.Rows[0].States, 3)
	assert.Nil(t, r.Rows[0].States[0])
	assert.Nil(t, r.Rows[0].States[1])
	assert.NotNil(t, r.Rows[0].States[2])
	assert.Len(t, r.Sums, 3)
}

func TestDashboard(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	for i, name := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		testutil.CreateTestGroup(t, env, name, []string{"18h00", "18h10", "18h20", "18h30"}[i])
	}
	testutil.CreateTestStation(t, env, "Before", 1, false, false)
	testutil.CreateTestStation(t, env, "Main", 2, false, false)
	testutil.CreateTestStation(t, env, "After", 3, false, false)

	// Alpha left the previous station long ago.
	_, err := env.Tracker.Advance(ctx, "Alpha", "Before")
	require.NoError(t, err)

	env.Clock.Advance(50 * time.Minute)

	// Bravo is on its way from the previous station.
	_, err = env.Tracker.Advance(ctx, "Bravo", "Before")
	require.NoError(t, err)
	_, err = env.Tracker.Advance(ctx, "Bravo", "Before")
	require.NoError(t, err)

	// Charlie already finished here and moved on.
	for i := 0; i < 2; i++ {
		_, err = env.Tracker.Advance(ctx, "Charlie", "Main")
		require.NoError(t, err)
	}
	_, err = env.Tracker.Advance(ctx, "Charlie", "After")
	require.NoError(t, err)

	// Delta is here right now.
	_, err = env.Tracker.Advance(ctx, "Delta", "Main")
	require.NoError(t, err)

	d, err := env.Tracker.Dashboard(ctx, "Main")
	require.NoError(t, err)

	assert.Equal(t, "Main", d.Station.Name)
	require.NotNil(t, d.Neighbours.Before)
	require.NotNil(t, d.Neighbours.After)
	assert.Equal(t, "Before", d.Neighbours.Before.Name)
	assert.Equal(t, "After", d.Neighbours.After.Name)

	type row struct {
		Name     string
		State    models.State
		Recorded bool
	}
	rows := func(entries []models.DashboardEntry) []row {
		out := []row{}
		for _, e := range entries {
			out = append(out, row{e.GroupName, e.State, e.Recorded})
		}
		return out
	}

	wantMain := []row{
		{"Delta", models.StateArrived, true},
		{"Alpha", models.StateUnknown, false},
		{"Bravo", models.StateUnknown, false},
		{"Charlie", models.StateFinished, true},
	}
	if diff := cmp.Diff(wantMain, rows(d.MainStates)); diff != "" {
		t.Errorf("main states mismatch (-want +got):\n%s", diff)
	}

	wantBefore := []row{{"Bravo", models.StateFinished, true}}
	if diff := cmp.Diff(wantBefore, rows(d.BeforeStates)); diff != "" {
		t.Errorf("before states mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, d.AfterStates, "groups finished at the station are not listed as incoming")
}

func TestDashboardSkipsCancelledGroups(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	g := testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestGroup(t, env, "Bravo", "18h10")
	testutil.CreateTestStation(t, env, "Main", 1, false, false)
	testutil.CreateTestStation(t, env, "After", 2, false, false)

	_, err := env.Tracker.Advance(ctx, "Alpha", "After")
	require.NoError(t, err)
	_, err = env.DB.Exec("UPDATE groups SET cancelled = TRUE WHERE id = $1", g.ID)
	require.NoError(t, err)

	d, err := env.Tracker.Dashboard(ctx, "Main")
	require.NoError(t, err)
	assert.Nil(t, d.Neighbours.Before)
	assert.Empty(t, d.BeforeStates)
	assert.Empty(t, d.AfterStates)
	require.Len(t, d.MainStates, 1)
	assert.Equal(t, "Bravo", d.MainStates[0].GroupName)
}

func TestStationDetailsOrder(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	cancelled := testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestGroup(t, env, "Bravo", "18h10")
	testutil.CreateTestGroup(t, env, "Charlie", "18h20")
	testutil.CreateTestGroup(t, env, "Delta", "18h30")
	testutil.CreateTestStation(t, env, "Main", 1, false, false)

	_, err := env.DB.Exec("UPDATE groups SET cancelled = TRUE WHERE id = $1", cancelled.ID)
	require.NoError(t, err)
	_, err = env.Tracker.Advance(ctx, "Delta", "Main")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = env.Tracker.Advance(ctx, "Bravo", "Main")
		require.NoError(t, err)
	}

	details, err := env.Tracker.StationDetails(ctx, "Main")
	require.NoError(t, err)

	var names []string
	for _, r := range details.GroupStates {
		names = append(names, r.Group.Name)
	}
	assert.Equal(t, []string{"Delta", "Charlie", "Bravo", "Alpha"}, names)
	assert.Nil(t, details.GroupStates[1].State)
	assert.NotNil(t, details.Questionnaires)
}
