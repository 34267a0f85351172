// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/notify"
	"github.com/mamerwiselen/lost-tracker/testutil"
)

func registrationBody(name, slot string) models.RegistrationRequest {
	return models.RegistrationRequest{
		GroupName:       name,
		ContactName:     "Jo",
		Email:           "jo@example.com",
		Tel:             "555-0101",
		Time:            slot,
		NumParticipants: 6,
	}
}

func TestRegistrationInfo(t *testing.T) {
	env := testutil.NewEnv(t)
	openRegistration(t, env)
	handler := NewRegistrationHandler(env.Tracker, env.Config)

	req := testutil.MakeRequest("GET", "/registration", nil, nil)
	w := serve(handler.Info, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var info registrationInfo
	testutil.AssertJSON(t, w, &info)
	if !info.Open {
		t.Error("Expected registration to be open")
	}
	want := []string{"18h00", "18h10", "18h20", "18h30", "18h40", "18h50"}
	if strings.Join(info.Slots, ",") != strings.Join(want, ",") {
		t.Errorf("Expected slots %v, got %v", want, info.Slots)
	}
}

func TestRegistrationInfoExternal(t *testing.T) {
	env := testutil.NewEnv(t)
	cfg := env.Config
	cfg.ExternalRegistration = "https://forms.example.com/lost"
	handler := NewRegistrationHandler(env.Tracker, cfg)

	req := testutil.MakeRequest("GET", "/registration", nil, nil)
	w := serve(handler.Info, req)

	testutil.AssertStatus(t, w, http.StatusFound)
	if loc := w.Header().Get("Location"); loc != cfg.ExternalRegistration {
		t.Errorf("Expected redirect to %s, got %s", cfg.ExternalRegistration, loc)
	}
}

func TestRegister(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestUser(t, env, "boss", "hunter22", models.RoleAdmin)
	leader := testutil.CreateTestUser(t, env, "leader", "scouting")
	handler := NewRegistrationHandler(env.Tracker, env.Config)

	register := func() *http.Request {
		req := testutil.MakeRequest("POST", "/registrations", registrationBody("Alpha", "18h30"),
			testutil.UserAuth("leader", "scouting"))
		return req
	}

	// closed by default
	w := serve(authed(env, handler.Register), register())
	testutil.AssertStatus(t, w, http.StatusForbidden)

	openRegistration(t, env)
	w = serve(authed(env, handler.Register), register())
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.RegistrationResponse
	testutil.AssertJSON(t, w, &resp)

	g, err := env.Tracker.GetGroup(context.Background(), resp.GroupID)
	if err != nil {
		t.Fatalf("Failed to load registered group: %v", err)
	}
	if !g.IsConfirmed {
		t.Error("Expected registration to be confirmed")
	}
	if g.UserID == nil || *g.UserID != leader.ID {
		t.Errorf("Expected group owned by user %d, got %v", leader.ID, g.UserID)
	}

	sent := env.Notifier.Sent()
	if len(sent) != 1 || sent[0].Template != notify.TemplateRegistrationCheck {
		t.Fatalf("Expected one registration check, got %+v", sent)
	}
	if url, _ := sent[0].Data["ActivationURL"].(string); !strings.HasSuffix(url, "/registrations/"+g.ConfirmationKey+"/accept") {
		t.Errorf("Unexpected activation url %q", url)
	}

	// duplicate name
	w = serve(authed(env, handler.Register), register())
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestRegisterRequiresUser(t *testing.T) {
	env := testutil.NewEnv(t)
	openRegistration(t, env)
	handler := NewRegistrationHandler(env.Tracker, env.Config)

	req := testutil.MakeRequest("POST", "/registrations", registrationBody("Alpha", "18h30"), testutil.DeviceAuth())
	w := serve(authed(env, handler.Register), req)

	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestRegisterAdminWhileClosed(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateTestUser(t, env, "boss", "hunter22", models.RoleAdmin)
	handler := NewRegistrationHandler(env.Tracker, env.Config)

	req := testutil.MakeRequest("POST", "/registrations", registrationBody("Alpha", "18h30"),
		testutil.UserAuth("boss", "hunter22"))
	w := serve(authed(env, handler.Register), req)

	testutil.AssertStatus(t, w, http.StatusCreated)
}

func TestAcceptRegistration(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	handler := NewRegistrationHandler(env.Tracker, env.Config)

	g, err := env.Tracker.StoreRegistration(ctx, registrationBody("Alpha", "18h30"))
	if err != nil {
		t.Fatalf("Failed to store registration: %v", err)
	}

	accept := func() models.RegistrationResponse {
		req := testutil.MakeRequest("POST", "/registrations/"+g.ConfirmationKey+"/accept", nil, nil)
		req.SetPathValue("key", g.ConfirmationKey)
		w := serve(handler.Accept, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.RegistrationResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}

	if resp := accept(); resp.Message != "Registration accepted" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
	if resp := accept(); resp.Message != "Registration was already accepted" {
		t.Errorf("Unexpected message on second accept %q", resp.Message)
	}

	var welcomes int
	for _, s := range env.Notifier.Sent() {
		if s.Template == notify.TemplateWelcome {
			welcomes++
		}
	}
	if welcomes != 1 {
		t.Errorf("Expected one welcome notification, got %d", welcomes)
	}
}

func TestConfirmUnknownKey(t *testing.T) {
	env := testutil.NewEnv(t)
	handler := NewRegistrationHandler(env.Tracker, env.Config)

	req := testutil.MakeRequest("POST", "/registrations/nope/confirm", nil, nil)
	req.SetPathValue("key", "nope")
	w := serve(handler.Confirm, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}
