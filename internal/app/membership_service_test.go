package app

import (
	"context"
	"testing"

	"second_saturday/internal/domain/circle"
	"second_saturday/internal/domain/submission"
	"second_saturday/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinLifecycle(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")

	c, err := env.circles.Create(ctx, admin.ID, "Morning Crew", "", "UTC")
	require.NoError(t, err)

	res, err := env.memberships.Join(ctx, friend.ID, c.InviteCode)
	require.NoError(t, err)
	assert.False(t, res.AlreadyMember)
	assert.False(t, res.Rejoined)

	// Joining twice is a no-op, not an error.
	res, err = env.memberships.Join(ctx, friend.ID, c.InviteCode)
	require.NoError(t, err)
	assert.True(t, res.AlreadyMember)

	_, err = env.memberships.Join(ctx, friend.ID, "no-such-code")
	assert.ErrorIs(t, err, ErrInvalidInviteCode)
}

func TestRejoinReactivatesSameMembership(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")

	c, err := env.circles.Create(ctx, admin.ID, "Morning Crew", "", "UTC")
	require.NoError(t, err)
	_, err = env.memberships.Join(ctx, friend.ID, c.InviteCode)
	require.NoError(t, err)

	before, err := env.circleRepo.GetMembership(ctx, friend.ID, c.ID)
	require.NoError(t, err)

	require.NoError(t, env.memberships.Leave(ctx, friend.ID, c.ID))

	res, err := env.memberships.Join(ctx, friend.ID, c.InviteCode)
	require.NoError(t, err)
	assert.True(t, res.Rejoined)

	after, err := env.circleRepo.GetMembership(ctx, friend.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.True(t, after.Active())
}

func TestAdminCannotLeaveWithoutTransfer(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	assert.ErrorIs(t, env.memberships.Leave(ctx, admin.ID, circleID), ErrAdminCannotLeave)

	require.NoError(t, env.memberships.TransferAdmin(ctx, admin.ID, circleID, friend.ID))

	// After the transfer the former admin is a plain member and may
	// leave; the new admin may not.
	assert.NoError(t, env.memberships.Leave(ctx, admin.ID, circleID))
	assert.ErrorIs(t, env.memberships.Leave(ctx, friend.ID, circleID), ErrAdminCannotLeave)

	c, err := env.circleRepo.GetCircleByID(ctx, circleID)
	require.NoError(t, err)
	assert.Equal(t, friend.ID, c.AdminID)
}

func TestTransferAdminValidatesTarget(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	stranger := env.addUser(t, "sub-stranger", "stranger@example.com", "Cal", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	assert.ErrorIs(t, env.memberships.TransferAdmin(ctx, admin.ID, circleID, admin.ID), ErrTransferToSelf)
	assert.ErrorIs(t, env.memberships.TransferAdmin(ctx, admin.ID, circleID, stranger.ID), ErrTargetNotActiveMember)

	require.NoError(t, env.memberships.Leave(ctx, friend.ID, circleID))
	assert.ErrorIs(t, env.memberships.TransferAdmin(ctx, admin.ID, circleID, friend.ID), ErrTargetNotActiveMember)
}

func TestTransferAdminRollsBackWhenCircleUpdateFails(t *testing.T) {
	ctx := context.Background()
	repo := &faultyCircleRepo{CircleRepository: memory.NewCircleRepository()}
	log := testLogger()
	clock := clockAt(baseTime)
	circles := NewCircleService(repo, clock, log)
	memberships := NewMembershipService(repo, memory.NewSubmissionRepository(), newFakeStore(), clock, log)

	c, err := circles.Create(ctx, 1, "Morning Crew", "", "UTC")
	require.NoError(t, err)
	_, err = memberships.Join(ctx, 2, c.InviteCode)
	require.NoError(t, err)

	repo.failCircleUpdate = true
	require.Error(t, memberships.TransferAdmin(ctx, 1, c.ID, 2))

	// Neither role flip sticks when the circle record cannot follow.
	caller, err := repo.GetMembership(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, circle.RoleAdmin, caller.Role)

	target, err := repo.GetMembership(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.Equal(t, circle.RoleMember, target.Role)

	got, err := repo.GetCircleByID(ctx, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.AdminID)
}

func TestRemoveMemberKeepingContributions(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)
	resp, err := env.submissions.SaveDraft(ctx, friend.ID, circleID, "2025-06", prompts[0].ID, "a lovely month")
	require.NoError(t, err)

	require.NoError(t, env.memberships.RemoveMember(ctx, admin.ID, circleID, friend.ID, true))

	kept, err := env.submissionRepo.GetResponseByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "a lovely month", kept.Text)

	// Soft-removed members may rejoin.
	c, err := env.circleRepo.GetCircleByID(ctx, circleID)
	require.NoError(t, err)
	res, err := env.memberships.Join(ctx, friend.ID, c.InviteCode)
	require.NoError(t, err)
	assert.True(t, res.Rejoined)
}

func TestRemoveMemberBlockingRedactsEverything(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)

	// Contributions across two cycles, with media.
	respA, err := env.submissions.SaveDraft(ctx, friend.ID, circleID, "2025-05", prompts[0].ID, "spring trip")
	require.NoError(t, err)
	media, err := env.submissions.AddMedia(ctx, friend.ID, respA.ID, submission.MediaTypeImage, "obj-1", "", "")
	require.NoError(t, err)
	respB, err := env.submissions.SaveDraft(ctx, friend.ID, circleID, "2025-06", prompts[1].ID, "summer plans")
	require.NoError(t, err)

	require.NoError(t, env.memberships.RemoveMember(ctx, admin.ID, circleID, friend.ID, false))

	for _, id := range []int64{respA.ID, respB.ID} {
		r, err := env.submissionRepo.GetResponseByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, submission.RedactedText, r.Text)
	}
	_, err = env.submissionRepo.GetMediaByID(ctx, media.ID)
	assert.ErrorIs(t, err, submission.ErrMediaNotFound)
	assert.Contains(t, env.store.deleted, "obj-1")

	// The block is irreversible.
	c, err := env.circleRepo.GetCircleByID(ctx, circleID)
	require.NoError(t, err)
	_, err = env.memberships.Join(ctx, friend.ID, c.InviteCode)
	assert.ErrorIs(t, err, ErrMemberBlocked)
}

func TestBlockCascadeFailureLeavesMemberUntouched(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)
	resp, err := env.submissions.SaveDraft(ctx, friend.ID, circleID, "2025-06", prompts[0].ID, "original text")
	require.NoError(t, err)
	_, err = env.submissions.AddMedia(ctx, friend.ID, resp.ID, submission.MediaTypeImage, "obj-stuck", "", "")
	require.NoError(t, err)

	env.store.failOn["obj-stuck"] = true
	err = env.memberships.RemoveMember(ctx, admin.ID, circleID, friend.ID, false)
	require.Error(t, err)

	// All-or-nothing: nothing was redacted and the membership is intact.
	r, err := env.submissionRepo.GetResponseByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "original text", r.Text)

	m, err := env.circleRepo.GetMembership(ctx, friend.ID, circleID)
	require.NoError(t, err)
	assert.True(t, m.Active())
	assert.False(t, m.Blocked)
}

func TestBlockCascadeMidwayFailureLeavesRecordsUntouched(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)
	resp, err := env.submissions.SaveDraft(ctx, friend.ID, circleID, "2025-06", prompts[0].ID, "original text")
	require.NoError(t, err)
	mediaA, err := env.submissions.AddMedia(ctx, friend.ID, resp.ID, submission.MediaTypeImage, "obj-a", "", "")
	require.NoError(t, err)
	mediaB, err := env.submissions.AddMedia(ctx, friend.ID, resp.ID, submission.MediaTypeImage, "obj-b", "", "")
	require.NoError(t, err)

	// Only the second object fails, so the cascade is already past the
	// first one when it aborts.
	env.store.failOn["obj-b"] = true
	err = env.memberships.RemoveMember(ctx, admin.ID, circleID, friend.ID, false)
	require.Error(t, err)

	// No record was touched: both media rows survive and the text is
	// unredacted, even though the first storage object is gone.
	for _, id := range []int64{mediaA.ID, mediaB.ID} {
		_, err := env.submissionRepo.GetMediaByID(ctx, id)
		require.NoError(t, err)
	}
	r, err := env.submissionRepo.GetResponseByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "original text", r.Text)

	m, err := env.circleRepo.GetMembership(ctx, friend.ID, circleID)
	require.NoError(t, err)
	assert.True(t, m.Active())
	assert.False(t, m.Blocked)
}

func TestRemoveMemberGuards(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	assert.ErrorIs(t, env.memberships.RemoveMember(ctx, friend.ID, circleID, admin.ID, true), ErrNotAdmin)
	assert.ErrorIs(t, env.memberships.RemoveMember(ctx, admin.ID, circleID, admin.ID, true), ErrRemoveSelf)
}

func TestSetEmailSubscription(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	require.NoError(t, env.memberships.SetEmailSubscription(ctx, friend.ID, circleID, false))
	m, err := env.circleRepo.GetMembership(ctx, friend.ID, circleID)
	require.NoError(t, err)
	assert.True(t, m.EmailUnsubscribed)

	require.NoError(t, env.memberships.SetEmailSubscription(ctx, friend.ID, circleID, true))
	m, err = env.circleRepo.GetMembership(ctx, friend.ID, circleID)
	require.NoError(t, err)
	assert.False(t, m.EmailUnsubscribed)
}
