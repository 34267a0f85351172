// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mamerwiselen/lost-tracker/cliparse"
	"github.com/mamerwiselen/lost-tracker/db"
	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/notify"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

// Device credentials accepted by GetTestConfig.
const (
	DeviceLogin    = "station-app"
	DevicePassword = "s3cret"
)

// SetupTestDB creates a fresh SQLite database in a temp dir and runs all
// migrations on it.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lost-tracker.db")
	conn, err := db.Open(cliparse.DatabaseSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(conn, cliparse.DatabaseSQLite); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseURL:     "file::memory:",
		DatabaseType:    cliparse.DatabaseSQLite,
		DeviceLogin:     DeviceLogin,
		DevicePassword:  DevicePassword,
		SlotStart:       "18h00",
		SlotEnd:         "19h00",
		SlotInterval:    10 * time.Minute,
		DashboardWindow: 45 * time.Minute,
	}
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sent is a notification captured by Recorder.
type Sent struct {
	Template string
	To       []notify.Recipient
	Data     map[string]any
}

// Recorder is a notify.Notifier that keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func (r *Recorder) Send(ctx context.Context, template string, to []notify.Recipient, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Template: template, To: to, Data: data})
	return r.Err
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Env bundles a tracker with its database, clock and notifier.
type Env struct {
	DB       *sql.DB
	Config   cliparse.Config
	Tracker  *tracker.Tracker
	Clock    *Clock
	Notifier *Recorder
}

// Start is the fixed time test environments begin at.
var Start = time.Date(2025, 5, 17, 18, 0, 0, 0, time.UTC)

// NewEnv sets up a migrated database and a tracker using a test clock.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	env := &Env{
		DB:       SetupTestDB(t),
		Config:   GetTestConfig(),
		Clock:    NewClock(Start),
		Notifier: &Recorder{},
	}
	env.Tracker = tracker.New(env.DB, env.Config, env.Notifier).WithClock(env.Clock.Now)
	return env
}

// CreateTestGroup adds a group with a start time and direction.
func CreateTestGroup(t *testing.T, env *Env, name, startTime string) models.Group {
	t.Helper()

	g, err := env.Tracker.AddGroup(context.Background(), models.AddGroupRequest{
		Name:      name,
		Contact:   "Contact of " + name,
		Phone:     "555-0100",
		Direction: models.DirA,
		StartTime: startTime,
	})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	return g
}

// CreateTestStation adds a station.
func CreateTestStation(t *testing.T, env *Env, name string, order int, isStart, isEnd bool) models.Station {
	t.Helper()

	s, err := env.Tracker.SaveStation(context.Background(), models.SaveStationRequest{
		Name:    name,
		Order:   order,
		IsStart: isStart,
		IsEnd:   isEnd,
	})
	if err != nil {
		t.Fatalf("Failed to create test station: %v", err)
	}
	return s
}

// CreateTestUser adds a user with the given roles.
func CreateTestUser(t *testing.T, env *Env, login, password string, roles ...string) models.User {
	t.Helper()

	u, err := env.Tracker.CreateUser(context.Background(), models.CreateUserRequest{
		Login:    login,
		Name:     login,
		Email:    login + "@example.com",
		Password: password,
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return u
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// DeviceAuth returns headers authenticating as the station app.
func DeviceAuth() map[string]string {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth(DeviceLogin, DevicePassword)
	return map[string]string{
		"Authorization": req.Header.Get("Authorization"),
		"Accept":        "application/json",
	}
}

// UserAuth returns headers authenticating as a user.
func UserAuth(login, password string) map[string]string {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth(login, password)
	return map[string]string{
		"Authorization": req.Header.Get("Authorization"),
		"Accept":        "application/json",
	}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
