package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"second_saturday/internal/domain/user"
	"second_saturday/internal/infra/memory"

	"github.com/stretchr/testify/require"
)

// testEnv wires every service against the in-memory repositories with
// a fixed clock.
type testEnv struct {
	userRepo       *memory.UserRepository
	circleRepo     *memory.CircleRepository
	submissionRepo *memory.SubmissionRepository
	newsletterRepo *memory.NewsletterRepository
	reminderRepo   *memory.ReminderRepository
	videoRepo      *memory.VideoRepository

	store *fakeStore
	email *fakeEmailSender
	push  *fakePushSender
	clock *fixedClock

	circles     *CircleService
	memberships *MembershipService
	submissions *SubmissionService
	reminders   *ReminderService
	newsletters *NewsletterService
	users       *UserService
	videos      *VideoService
	sweeps      *SweepService
}

func newTestEnv(at time.Time) *testEnv {
	env := &testEnv{
		userRepo:       memory.NewUserRepository(),
		circleRepo:     memory.NewCircleRepository(),
		submissionRepo: memory.NewSubmissionRepository(),
		newsletterRepo: memory.NewNewsletterRepository(),
		reminderRepo:   memory.NewReminderRepository(),
		videoRepo:      memory.NewVideoRepository(),
		store:          newFakeStore(),
		email:          newFakeEmailSender(),
		push:           newFakePushSender(),
		clock:          clockAt(at),
	}
	log := testLogger()
	env.circles = NewCircleService(env.circleRepo, env.clock, log)
	env.memberships = NewMembershipService(env.circleRepo, env.submissionRepo, env.store, env.clock, log)
	env.submissions = NewSubmissionService(env.circleRepo, env.submissionRepo, env.store, env.clock, log)
	env.reminders = NewReminderService(env.circleRepo, env.submissionRepo, env.reminderRepo, env.userRepo, env.push, env.clock, log)
	env.newsletters = NewNewsletterService(env.circleRepo, env.submissionRepo, env.newsletterRepo, env.reminderRepo, env.userRepo, env.email, env.push, env.store, "https://app.test", env.clock, log)
	env.users = NewUserService(env.userRepo, env.circleRepo, env.submissionRepo, env.newsletterRepo, env.videoRepo, env.store, env.email, env.clock, log)
	env.videos = NewVideoService(env.videoRepo, env.clock, log)
	env.sweeps = NewSweepService(env.circleRepo, env.submissions, env.newsletters, env.reminders, log)
	return env
}

func (env *testEnv) addUser(t *testing.T, subjectID, email, name, playerID string) *user.User {
	t.Helper()
	u := &user.User{SubjectID: subjectID, Email: email}
	if name != "" {
		u.Name = sql.NullString{String: name, Valid: true}
	}
	if playerID != "" {
		u.PushPlayerID = sql.NullString{String: playerID, Valid: true}
	}
	require.NoError(t, env.userRepo.Create(context.Background(), u))
	return u
}

// newCircle creates a circle owned by admin and joins the given
// members via the invite code.
func (env *testEnv) newCircle(t *testing.T, adminID int64, memberIDs ...int64) int64 {
	t.Helper()
	ctx := context.Background()
	c, err := env.circles.Create(ctx, adminID, "Morning Crew", "", "UTC")
	require.NoError(t, err)
	for _, id := range memberIDs {
		_, err := env.memberships.Join(ctx, id, c.InviteCode)
		require.NoError(t, err)
	}
	return c.ID
}
