// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tracker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamerwiselen/lost-tracker/models"
	"github.com/mamerwiselen/lost-tracker/notify"
	"github.com/mamerwiselen/lost-tracker/testutil"
	"github.com/mamerwiselen/lost-tracker/tracker"
)

func registration(name, start string) models.RegistrationRequest {
	return models.RegistrationRequest{
		GroupName:       name,
		ContactName:     "Jo",
		Email:           "jo@example.com",
		Tel:             "555-0101",
		Time:            start,
		NumParticipants: 5,
		NumVegetarians:  2,
	}
}

func TestStartTimeToOrder(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"18h30", 1830},
		{"9h05", 905},
		{"", 0},
		{"soon", 0},
		{"20:00", 2000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tracker.StartTimeToOrder(tt.in))
		})
	}
}

func TestStoreRegistration(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	g, err := env.Tracker.StoreRegistration(ctx, registration("Alpha", "18h30"))
	require.NoError(t, err)
	assert.Equal(t, "Alpha", g.Name)
	assert.Equal(t, 1830, g.Order)
	assert.Len(t, g.ConfirmationKey, 20)
	assert.NotContains(t, g.ConfirmationKey, "/")
	assert.False(t, g.IsConfirmed)
	assert.False(t, g.Accepted)
	assert.Equal(t, 5, g.NumParticipants)
	assert.Equal(t, 2, g.NumVegetarians)

	// same slot, next free order
	other, err := env.Tracker.StoreRegistration(ctx, registration("Bravo", "18h30"))
	require.NoError(t, err)
	assert.Equal(t, 1831, other.Order)
	assert.NotEqual(t, g.ConfirmationKey, other.ConfirmationKey)
}

func TestStoreRegistrationDuplicateName(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Tracker.StoreRegistration(ctx, registration("Alpha", "18h30"))
	require.NoError(t, err)

	_, err = env.Tracker.StoreRegistration(ctx, registration("Alpha", "19h00"))
	var verr *tracker.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "group_name", verr.Field)
	assert.ErrorIs(t, err, tracker.ErrGroupExists)

	var n int
	require.NoError(t, env.DB.QueryRow("SELECT COUNT(*) FROM groups").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStoreRegistrationRequiresFields(t *testing.T) {
	env := testutil.NewEnv(t)
	req := registration("  ", "18h00")

	_, err := env.Tracker.StoreRegistration(context.Background(), req)
	var verr *tracker.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "group_name", verr.Field)
}

func TestConfirmAndAcceptRegistration(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env, "boss", "pw", models.RoleAdmin)
	testutil.CreateTestUser(t, env, "helper", "pw", models.RoleStaff)

	g, err := env.Tracker.StoreRegistration(ctx, registration("Alpha", "18h30"))
	require.NoError(t, err)

	confirmed, err := env.Tracker.ConfirmRegistration(ctx, g.ConfirmationKey, "https://example.com/accept")
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed)

	// a second confirmation sends nothing
	_, err = env.Tracker.ConfirmRegistration(ctx, g.ConfirmationKey, "https://example.com/accept")
	require.NoError(t, err)

	sent := env.Notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.TemplateRegistrationCheck, sent[0].Template)
	assert.Equal(t, []notify.Recipient{{Name: "boss", Email: "boss@example.com"}}, sent[0].To)
	assert.Equal(t, "https://example.com/accept", sent[0].Data["ActivationURL"])

	accepted, err := env.Tracker.AcceptRegistration(ctx, g.ConfirmationKey)
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = env.Tracker.AcceptRegistration(ctx, g.ConfirmationKey)
	require.NoError(t, err)
	assert.False(t, accepted)

	sent = env.Notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.TemplateWelcome, sent[1].Template)
	assert.Equal(t, "jo@example.com", sent[1].To[0].Email)

	_, err = env.Tracker.ConfirmRegistration(ctx, "no-such-key", "")
	assert.ErrorIs(t, err, tracker.ErrGroupNotFound)
}

func TestNotificationFailureDoesNotFail(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, env, "boss", "pw", models.RoleAdmin)
	env.Notifier.Err = assert.AnError

	g, err := env.Tracker.StoreRegistration(ctx, registration("Alpha", "18h30"))
	require.NoError(t, err)
	_, err = env.Tracker.ConfirmRegistration(ctx, g.ConfirmationKey, "")
	assert.NoError(t, err)
	assert.Len(t, env.Notifier.Sent(), 1)
}

func TestUpdateGroupPermissions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, env, "owner", "pw")
	stranger := testutil.CreateTestUser(t, env, "stranger", "pw")
	admin := testutil.CreateTestUser(t, env, "admin", "pw", models.RoleAdmin)

	req := registration("Alpha", "18h30")
	req.UserID = &owner.ID
	g, err := env.Tracker.StoreRegistration(ctx, req)
	require.NoError(t, err)

	update := models.UpdateGroupRequest{
		Name:                  "Alpha Team",
		Contact:               "Jo",
		NumParticipants:       9,
		Cancelled:             func() *bool { b := true; return &b }(),
		NotificationRecipient: "admins",
	}

	_, err = env.Tracker.UpdateGroup(ctx, g.ID, update, &stranger)
	assert.ErrorIs(t, err, tracker.ErrForbidden)

	// registration closed: counts stay, admin-only fields are ignored
	updated, err := env.Tracker.UpdateGroup(ctx, g.ID, update, &owner)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Team", updated.Name)
	assert.Equal(t, 5, updated.NumParticipants)
	assert.False(t, updated.Cancelled)

	_, err = env.Tracker.PutSetting(ctx, models.SettingRegistrationOpen, []byte("true"))
	require.NoError(t, err)
	updated, err = env.Tracker.UpdateGroup(ctx, g.ID, update, &owner)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.NumParticipants)

	slot := "19h00"
	update.StartTime = &slot
	updated, err = env.Tracker.UpdateGroup(ctx, g.ID, update, &admin)
	require.NoError(t, err)
	assert.True(t, updated.Cancelled)
	assert.Equal(t, 1900, updated.Order)

	var templates []string
	for _, s := range env.Notifier.Sent() {
		templates = append(templates, s.Template)
		assert.Equal(t, "admin@example.com", s.To[0].Email)
	}
	assert.Equal(t, []string{
		notify.TemplateRegistrationUpdate,
		notify.TemplateRegistrationUpdate,
		notify.TemplateRegistrationUpdate,
	}, templates)
}

func TestSetTimeSlot(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTestGroup(t, env, "Alpha", "18h00")

	g, err := env.Tracker.SetTimeSlot(ctx, "Alpha", models.TimeSlotRequest{Direction: models.DirB, NewSlot: "18h40"})
	require.NoError(t, err)
	assert.Equal(t, models.DirB, g.Direction)
	assert.Equal(t, "18h40", g.StartTime)
	assert.Equal(t, 1840, g.Order)

	_, err = env.Tracker.SetTimeSlot(ctx, "Alpha", models.TimeSlotRequest{Direction: "Sideways", NewSlot: "18h40"})
	assert.ErrorIs(t, err, tracker.ErrInvalidDirection)
}

func TestTimeSlotsAndStats(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	slots, err := env.Tracker.TimeSlots()
	require.NoError(t, err)
	assert.Equal(t, []string{"18h00", "18h10", "18h20", "18h30", "18h40", "18h50"}, slots)

	testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestGroup(t, env, "Bravo", "18h20")

	stats, err := env.Tracker.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Groups: 2, Slots: 12, FreeSlots: 10, Load: 2.0 / 12.0}, stats)

	overview, err := env.Tracker.SlotOverview(ctx)
	require.NoError(t, err)
	require.Len(t, overview, 6)
	require.NotNil(t, overview[0].DirA)
	assert.Equal(t, "Alpha", overview[0].DirA.Name)
	assert.Nil(t, overview[0].DirB)
	assert.Equal(t, "Bravo", overview[2].DirA.Name)
	assert.Nil(t, overview[1].DirA)
}

func TestAddGroupRejectsDirection(t *testing.T) {
	env := testutil.NewEnv(t)
	_, err := env.Tracker.AddGroup(context.Background(), models.AddGroupRequest{
		Name:      "Alpha",
		Direction: "north",
	})
	assert.ErrorIs(t, err, tracker.ErrInvalidDirection)
}

func TestDeleteGroup(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	g := testutil.CreateTestGroup(t, env, "Alpha", "18h00")
	testutil.CreateTestStation(t, env, "Bridge", 1, false, false)
	_, err := env.Tracker.Advance(ctx, "Alpha", "Bridge")
	require.NoError(t, err)

	require.NoError(t, env.Tracker.DeleteGroup(ctx, g.ID))
	assert.ErrorIs(t, env.Tracker.DeleteGroup(ctx, g.ID), tracker.ErrGroupNotFound)
	assert.Equal(t, 0, countProgressRows(t, env))
}

// stealKey makes every insert using key lose a race against another
// registration that grabs the same key first.
func stealKey(t *testing.T, env *testutil.Env, key string) {
	t.Helper()
	_, err := env.DB.Exec(`
		CREATE TRIGGER steal_key BEFORE INSERT ON groups
		WHEN NEW.confirmation_key = '` + key + `'
		BEGIN
			INSERT INTO groups (name, display_order, confirmation_key, inserted)
			VALUES ('Racer', 99999, NEW.confirmation_key, NEW.inserted);
		END`)
	require.NoError(t, err)
}

func TestStoreRegistrationRetriesKeyCollision(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	keys := []string{"taken-key", "fresh-key"}
	calls := 0
	env.Tracker.WithKeyGenerator(func() (string, error) {
		key := keys[min(calls, len(keys)-1)]
		calls++
		return key, nil
	})
	stealKey(t, env, "taken-key")

	g, err := env.Tracker.StoreRegistration(ctx, registration("Alpha", "18h00"))
	require.NoError(t, err)
	assert.Equal(t, "fresh-key", g.ConfirmationKey)
	assert.Equal(t, 2, calls)

	groups, err := env.Tracker.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Alpha", groups[0].Name)
}

func TestStoreRegistrationGivesUpOnRepeatedCollisions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	calls := 0
	env.Tracker.WithKeyGenerator(func() (string, error) {
		calls++
		return "taken-key", nil
	})
	stealKey(t, env, "taken-key")

	_, err := env.Tracker.StoreRegistration(ctx, registration("Alpha", "18h00"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, tracker.ErrGroupExists)
	assert.Equal(t, 5, calls)
}
