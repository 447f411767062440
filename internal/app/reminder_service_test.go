package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminReminderCapCountsTargetedAndBulkTogether(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "player-admin")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "player-friend")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	require.NoError(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-06", friend.ID))
	require.NoError(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-06", friend.ID))
	_, err := env.reminders.SendBulkAdminReminder(ctx, admin.ID, circleID, "2025-06")
	require.NoError(t, err)

	// Fourth attempt of any kind fails.
	err = env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-06", friend.ID)
	assert.ErrorIs(t, err, ErrReminderCapReached)
	_, err = env.reminders.SendBulkAdminReminder(ctx, admin.ID, circleID, "2025-06")
	assert.ErrorIs(t, err, ErrReminderCapReached)

	// A new cycle resets the counter.
	assert.NoError(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-07", friend.ID))
}

func TestAdminReminderRejectionsAreTotal(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	stranger := env.addUser(t, "sub-stranger", "stranger@example.com", "Cal", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	// Non-admin caller, bad cycle, invalid target: none may consume a
	// slot from the cap.
	assert.ErrorIs(t, env.reminders.SendAdminReminder(ctx, friend.ID, circleID, "2025-06", admin.ID), ErrNotAdmin)
	assert.Error(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-6", friend.ID))
	assert.ErrorIs(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-06", stranger.ID), ErrTargetNotActiveMember)

	count, err := env.reminderRepo.CountReminders(ctx, admin.ID, circleID, "2025-06")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAdminReminderDispatchesPush(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "player-friend")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	require.NoError(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-06", friend.ID))
	require.Len(t, env.push.sent, 1)
	assert.Equal(t, []string{"player-friend"}, env.push.sent[0].PlayerIDs)
	assert.Contains(t, env.push.sent[0].Message, "Morning Crew")
}

func TestBulkReminderTargetsOnlyNonSubmitters(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "player-admin")
	done := env.addUser(t, "sub-done", "done@example.com", "Bea", "player-done")
	pending := env.addUser(t, "sub-pending", "pending@example.com", "Cal", "player-pending")
	circleID := env.newCircle(t, admin.ID, done.ID, pending.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)

	_, err = env.submissions.SaveDraft(ctx, done.ID, circleID, "2025-06", prompts[0].ID, "all set")
	require.NoError(t, err)
	sub, err := env.submissionRepo.GetSubmission(ctx, done.ID, circleID, "2025-06")
	require.NoError(t, err)
	require.NoError(t, env.submissions.Lock(ctx, done.ID, sub.ID))

	notified, err := env.reminders.SendBulkAdminReminder(ctx, admin.ID, circleID, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 2, notified) // admin (no submission) and pending

	require.Len(t, env.push.sent, 1)
	assert.ElementsMatch(t, []string{"player-admin", "player-pending"}, env.push.sent[0].PlayerIDs)
}

func TestPreferenceDefaultsAndUpdate(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	u := env.addUser(t, "sub-u", "u@example.com", "Uma", "")

	p, err := env.reminders.Preferences(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, p.SubmissionReminders)
	assert.True(t, p.NewsletterReady)

	require.NoError(t, env.reminders.UpdatePreferences(ctx, u.ID, false, true))
	p, err = env.reminders.Preferences(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, p.SubmissionReminders)
	assert.True(t, p.NewsletterReady)
}

func TestSubmissionReminderSweepGatesOnComingSecondSaturday(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "player-admin")
	env.newCircle(t, admin.ID)

	// Wednesday June 4: the coming Saturday is the first one.
	earlyWednesday := time.Date(2025, time.June, 4, 11, 0, 0, 0, time.UTC)
	require.NoError(t, env.reminders.SendSubmissionReminders(ctx, earlyWednesday))
	assert.Empty(t, env.push.sent)

	// Wednesday June 11: the coming Saturday is the second one.
	reminderWednesday := time.Date(2025, time.June, 11, 11, 0, 0, 0, time.UTC)
	require.NoError(t, env.reminders.SendSubmissionReminders(ctx, reminderWednesday))
	require.Len(t, env.push.sent, 1)
	assert.Equal(t, []string{"player-admin"}, env.push.sent[0].PlayerIDs)
}

func TestSubmissionReminderSweepHonorsOptOut(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "player-admin")
	optedOut := env.addUser(t, "sub-out", "out@example.com", "Bea", "player-out")
	env.newCircle(t, admin.ID, optedOut.ID)

	require.NoError(t, env.reminders.UpdatePreferences(ctx, optedOut.ID, false, true))

	reminderWednesday := time.Date(2025, time.June, 11, 11, 0, 0, 0, time.UTC)
	require.NoError(t, env.reminders.SendSubmissionReminders(ctx, reminderWednesday))
	require.Len(t, env.push.sent, 1)
	assert.Equal(t, []string{"player-admin"}, env.push.sent[0].PlayerIDs)
}
