package app

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"second_saturday/internal/domain/submission"
	"second_saturday/internal/domain/user"
)

func TestEnsureIsGetOrCreate(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()

	u, err := env.users.Ensure(ctx, "sub-new", "new@example.com", "Nia", "https://img.test/nia.jpg")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Nia", u.Name.String)

	again, err := env.users.Ensure(ctx, "sub-new", "ignored@example.com", "Ignored", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "new@example.com", again.Email)
}

func TestSyncOverwritesProfile(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	u := env.addUser(t, "sub-u", "old@example.com", "Old Name", "")

	synced, err := env.users.Sync(ctx, "sub-u", "new@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, synced.ID)
	assert.Equal(t, "new@example.com", synced.Email)
	assert.False(t, synced.Name.Valid)
}

func TestUpdateProfileReplacesAvatarObject(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	u := env.addUser(t, "sub-u", "u@example.com", "Uma", "")
	u.AvatarStorageID = sql.NullString{String: "avatar-old", Valid: true}
	require.NoError(t, env.userRepo.Update(ctx, u))

	newAvatar := "avatar-new"
	require.NoError(t, env.users.UpdateProfile(ctx, u.ID, nil, &newAvatar))

	assert.Contains(t, env.store.deleted, "avatar-old")
	got, err := env.userRepo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "avatar-new", got.AvatarStorageID.String)
	assert.Equal(t, "https://store.test/objects/avatar-new", got.ImageURL.String)
}

func TestRegisterPushPlayer(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	u := env.addUser(t, "sub-u", "u@example.com", "Uma", "")

	require.NoError(t, env.users.RegisterPushPlayer(ctx, u.ID, "player-42"))
	got, err := env.userRepo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "player-42", got.PushPlayerID.String)
}

func TestDeleteRefusedWhileAdminOfLiveCircle(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	circleID := env.newCircle(t, admin.ID)

	assert.ErrorIs(t, env.users.Delete(ctx, admin.ID), ErrAccountHasAdminCircles)

	// Archiving the circle releases the obligation.
	require.NoError(t, env.circles.Archive(ctx, admin.ID, circleID))
	assert.NoError(t, env.users.Delete(ctx, admin.ID))
}

func TestDeleteCascadesThroughAllContent(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	leaver := env.addUser(t, "sub-leaver", "leaver@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, leaver.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)

	resp, err := env.submissions.SaveDraft(ctx, leaver.ID, circleID, "2025-06", prompts[0].ID, "my month")
	require.NoError(t, err)
	_, err = env.submissions.AddMedia(ctx, leaver.ID, resp.ID, submission.MediaTypeImage, "obj-photo", "", "")
	require.NoError(t, err)

	leaver.AvatarStorageID = sql.NullString{String: "avatar-leaver", Valid: true}
	require.NoError(t, env.userRepo.Update(ctx, leaver))

	_, err = env.videos.Track(ctx, leaver.ID, circleID, "june clip")
	require.NoError(t, err)

	env.lockSubmissionWith(t, admin.ID, circleID, "2025-06", prompts[0].ID, "admin month")
	res, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)
	require.NoError(t, env.newsletters.MarkRead(ctx, leaver.ID, res.NewsletterID))

	require.NoError(t, env.users.Delete(ctx, leaver.ID))

	_, err = env.userRepo.GetByID(ctx, leaver.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = env.submissionRepo.GetSubmission(ctx, leaver.ID, circleID, "2025-06")
	assert.ErrorIs(t, err, submission.ErrSubmissionNotFound)
	assert.Contains(t, env.store.deleted, "obj-photo")
	assert.Contains(t, env.store.deleted, "avatar-leaver")

	m, err := env.circleRepo.GetMembership(ctx, leaver.ID, circleID)
	require.NoError(t, err)
	assert.False(t, m.Active())

	// Deletion confirmation is the only email.
	require.Len(t, env.email.sent, 1)
	assert.Equal(t, "leaver@example.com", env.email.sent[0].To)
}

func TestDeleteBySubjectIgnoresUnknownSubjects(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()

	assert.NoError(t, env.users.DeleteBySubject(ctx, "sub-never-seen"))

	u := env.addUser(t, "sub-known", "known@example.com", "Kai", "")
	require.NoError(t, env.users.DeleteBySubject(ctx, "sub-known"))
	_, err := env.userRepo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}
