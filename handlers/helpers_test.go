// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/mamerwiselen/lost-tracker/middleware"
	"github.com/mamerwiselen/lost-tracker/testutil"
)

// authed runs h behind BasicAuth backed by the env's tracker.
func authed(env *testutil.Env, h http.HandlerFunc) http.HandlerFunc {
	return middleware.BasicAuth(env.Tracker, middleware.Credentials{
		Login:    env.Config.DeviceLogin,
		Password: env.Config.DevicePassword,
	})(h)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func openRegistration(t *testing.T, env *testutil.Env) {
	t.Helper()
	if _, err := env.Tracker.PutSetting(context.Background(), "registration_open", json.RawMessage("true")); err != nil {
		t.Fatalf("Failed to open registration: %v", err)
	}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
