// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/testutil"
)

func TestStationLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	handler := NewStationHandler(env.Tracker)

	req := testutil.MakeRequest("POST", "/stations", models.SaveStationRequest{Name: "Bridge", Order: 3}, nil)
	w := serve(handler.SaveStation, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var s models.Station
	testutil.AssertJSON(t, w, &s)

	update := models.SaveStationRequest{ID: &s.ID, Name: "Old Bridge", Order: 3, IsStart: true}
	req = testutil.MakeRequest("POST", "/stations", update, nil)
	w = serve(handler.SaveStation, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("GET", "/stations", nil, nil)
	w = serve(handler.ListStations, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var stations []models.Station
	testutil.AssertJSON(t, w, &stations)
	if len(stations) != 1 || stations[0].Name != "Old Bridge" || !stations[0].IsStart {
		t.Fatalf("Unexpected stations after update: %+v", stations)
	}

	req = testutil.MakeRequest("DELETE", "/station/"+id(s.ID), nil, nil)
	req.SetPathValue("id", id(s.ID))
	w = serve(handler.DeleteStation, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	req = testutil.MakeRequest("DELETE", "/station/abc", nil, nil)
	req.SetPathValue("id", "abc")
	w = serve(handler.DeleteStation, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestFormScores(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	handler := NewStationHandler(env.Tracker)

	req := testutil.MakeRequest("POST", "/forms", models.AddFormRequest{Name: "Quiz"}, nil)
	w := serve(handler.AddForm, req)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var form models.Form
	testutil.AssertJSON(t, w, &form)
	if form.MaxScore != 100 {
		t.Errorf("Expected default max score 100, got %d", form.MaxScore)
	}

	req = testutil.MakeRequest("PUT", "/group/Alpha/form/"+id(form.ID), models.FormScoreRequest{Score: 42}, nil)
	req.SetPathValue("group", "Alpha")
	req.SetPathValue("form", id(form.ID))
	w = serve(handler.SetFormScore, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("GET", "/group/Alpha/form/"+id(form.ID), nil, nil)
	req.SetPathValue("group", "Alpha")
	req.SetPathValue("form", id(form.ID))
	w = serve(handler.GetFormScore, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var fs models.FormScore
	testutil.AssertJSON(t, w, &fs)
	if fs.Score != 42 {
		t.Errorf("Expected form score 42, got %d", fs.Score)
	}

	req = testutil.MakeRequest("GET", "/group/Alpha/form/999", nil, nil)
	req.SetPathValue("group", "Alpha")
	req.SetPathValue("form", "999")
	w = serve(handler.GetFormScore, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestGroupAdministration(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestUser(t, env, "boss", "hunter22", models.RoleAdmin)
	handler := NewGroupHandler(env.Tracker)

	add := models.AddGroupRequest{Name: "Alpha", Contact: "Jo", Direction: models.DirB, StartTime: "18h20"}
	req := testutil.MakeRequest("POST", "/groups", add, nil)
	w := serve(handler.AddGroup, req)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var g models.Group
	testutil.AssertJSON(t, w, &g)

	cancelled := true
	update := models.UpdateGroupRequest{Name: "Alpha Wolves", Contact: "Jo", Cancelled: &cancelled}
	req = testutil.MakeRequest("PUT", "/group/"+id(g.ID), update, testutil.UserAuth("boss", "hunter22"))
	req.SetPathValue("id", id(g.ID))
	w = serve(authed(env, handler.UpdateGroup), req)
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &g)
	if g.Name != "Alpha Wolves" || !g.Cancelled {
		t.Errorf("Update not applied: %+v", g)
	}

	req = testutil.MakeRequest("GET", "/group/Alpha%20Wolves", nil, nil)
	req.SetPathValue("id", "Alpha Wolves")
	w = serve(handler.GetGroup, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("DELETE", "/group/"+id(g.ID), nil, nil)
	req.SetPathValue("id", id(g.ID))
	w = serve(handler.DeleteGroup, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	req = testutil.MakeRequest("GET", "/group/"+id(g.ID), nil, nil)
	req.SetPathValue("id", id(g.ID))
	w = serve(handler.GetGroup, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestUpdateGroupForeignOwner(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestUser(t, env, "stranger", "letmein1")
	g := testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	handler := NewGroupHandler(env.Tracker)

	update := models.UpdateGroupRequest{Name: "Hijacked"}
	req := testutil.MakeRequest("PUT", "/group/"+id(g.ID), update, testutil.UserAuth("stranger", "letmein1"))
	req.SetPathValue("id", id(g.ID))
	w := serve(authed(env, handler.UpdateGroup), req)

	testutil.AssertStatus(t, w, http.StatusForbidden)
}

func TestMyGroups(t *testing.T) {
	env := testutil.NewEnv(t)
	u := testutil.CreateTestUser(t, env, "leader", "scouting")
	testutil.CreateTestGroup(t, env, "Other", "18h00")
	req := registrationBody("Alpha", "18h10")
	req.UserID = &u.ID
	if _, err := env.Tracker.StoreRegistration(context.Background(), req); err != nil {
		t.Fatalf("Failed to store registration: %v", err)
	}
	handler := NewGroupHandler(env.Tracker)

	r := testutil.MakeRequest("GET", "/groups/mine", nil, testutil.UserAuth("leader", "scouting"))
	w := serve(authed(env, handler.MyGroups), r)
	testutil.AssertStatus(t, w, http.StatusOK)

	var groups []models.Group
	testutil.AssertJSON(t, w, &groups)
	if len(groups) != 1 || groups[0].Name != "Alpha" {
		t.Errorf("Expected only Alpha, got %+v", groups)
	}
}

func TestSlotsAndStats(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestGroup(t, env, "Bravo", "18h10")
	handler := NewGroupHandler(env.Tracker)

	w := serve(handler.Slots, testutil.MakeRequest("GET", "/slots", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var rows []models.SlotRow
	testutil.AssertJSON(t, w, &rows)
	if len(rows) != 6 {
		t.Fatalf("Expected 6 slot rows, got %d", len(rows))
	}
	if rows[0].DirA == nil || rows[0].DirA.Name != "Alpha" {
		t.Errorf("Expected Alpha in first slot, got %+v", rows[0].DirA)
	}

	w = serve(handler.Stats, testutil.MakeRequest("GET", "/stats", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var stats models.Stats
	testutil.AssertJSON(t, w, &stats)
	if stats.Groups != 2 || stats.Slots != 12 || stats.FreeSlots != 10 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestSetTimeSlot(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	handler := NewGroupHandler(env.Tracker)

	body := models.TimeSlotRequest{Direction: models.DirB, NewSlot: "18h40"}
	req := testutil.MakeRequest("PUT", "/group/Alpha/timeslot", body, nil)
	req.SetPathValue("group", "Alpha")
	w := serve(handler.SetTimeSlot, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var g models.Group
	testutil.AssertJSON(t, w, &g)
	if g.StartTime != "18h40" || g.Direction != models.DirB {
		t.Errorf("Slot not applied: %+v", g)
	}

	body.Direction = "Sideways"
	req = testutil.MakeRequest("PUT", "/group/Alpha/timeslot", body, nil)
	req.SetPathValue("group", "Alpha")
	w = serve(handler.SetTimeSlot, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestMessages(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestUser(t, env, "boss", "hunter22", models.RoleAdmin)
	testutil.CreateTestUser(t, env, "stranger", "letmein1")
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	handler := NewMessageHandler(env.Tracker)

	req := testutil.MakeRequest("POST", "/group/Alpha/messages", models.MessageRequest{Content: "See you at 6"},
		testutil.UserAuth("boss", "hunter22"))
	req.SetPathValue("group", "Alpha")
	w := serve(authed(env, handler.PostMessage), req)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var msg models.Message
	testutil.AssertJSON(t, w, &msg)

	req = testutil.MakeRequest("GET", "/group/Alpha/messages", nil, testutil.UserAuth("boss", "hunter22"))
	req.SetPathValue("group", "Alpha")
	w = serve(authed(env, handler.ListMessages), req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var msgs []models.Message
	testutil.AssertJSON(t, w, &msgs)
	if len(msgs) != 1 || msgs[0].Author != "boss" {
		t.Fatalf("Unexpected messages %+v", msgs)
	}

	req = testutil.MakeRequest("GET", "/group/Alpha/messages", nil, testutil.UserAuth("stranger", "letmein1"))
	req.SetPathValue("group", "Alpha")
	w = serve(authed(env, handler.ListMessages), req)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	req = testutil.MakeRequest("DELETE", "/message/"+id(msg.ID), nil, testutil.UserAuth("stranger", "letmein1"))
	req.SetPathValue("id", id(msg.ID))
	w = serve(authed(env, handler.DeleteMessage), req)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	req = testutil.MakeRequest("DELETE", "/message/"+id(msg.ID), nil, testutil.UserAuth("boss", "hunter22"))
	req.SetPathValue("id", id(msg.ID))
	w = serve(authed(env, handler.DeleteMessage), req)
	testutil.AssertStatus(t, w, http.StatusNoContent)
}

func TestSettings(t *testing.T) {
	env := testutil.NewEnv(t)
	handler := NewSettingsHandler(env.Tracker)

	body := map[string]any{"registration_open": true, "helpdesk": "555-0199"}
	w := serve(handler.PutSettings, testutil.MakeRequest("PUT", "/settings", body, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var settings []models.Setting
	testutil.AssertJSON(t, w, &settings)
	values := make(map[string]any)
	for _, s := range settings {
		values[s.Key] = s.Value
	}
	if values["registration_open"] != true || values["helpdesk"] != "555-0199" {
		t.Errorf("Unexpected settings %v", values)
	}

	body = map[string]any{"no_such_key": 1}
	w = serve(handler.PutSettings, testutil.MakeRequest("PUT", "/settings", body, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestUsers(t *testing.T) {
	env := testutil.NewEnv(t)
	handler := NewUserHandler(env.Tracker)

	create := models.CreateUserRequest{Login: "jo", Name: "Jo", Email: "jo@example.com", Password: "campfire", Roles: []string{models.RoleStaff}}
	w := serve(handler.CreateUser, testutil.MakeRequest("POST", "/users", create, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = serve(handler.CreateUser, testutil.MakeRequest("POST", "/users", create, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = serve(authed(env, handler.Me), testutil.MakeRequest("GET", "/me", nil, testutil.UserAuth("jo", "campfire")))
	testutil.AssertStatus(t, w, http.StatusOK)
	var p middleware.Principal
	testutil.AssertJSON(t, w, &p)
	if p.User == nil || p.User.Login != "jo" || !p.HasRole(models.RoleStaff) {
		t.Errorf("Unexpected principal %+v", p)
	}

	w = serve(authed(env, handler.Me), testutil.MakeRequest("GET", "/me", nil, testutil.DeviceAuth()))
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &p)
	if !p.Device {
		t.Error("Expected device principal")
	}
}
