package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"second_saturday/internal/domain/newsletter"
	"second_saturday/internal/domain/submission"
)

// lockSubmissionWith drafts a single response and locks the submission.
func (env *testEnv) lockSubmissionWith(t *testing.T, userID, circleID int64, cycleID string, promptID int64, text string) *submission.Response {
	t.Helper()
	ctx := context.Background()
	resp, err := env.submissions.SaveDraft(ctx, userID, circleID, cycleID, promptID, text)
	require.NoError(t, err)
	sub, err := env.submissionRepo.GetSubmission(ctx, userID, circleID, cycleID)
	require.NoError(t, err)
	require.NoError(t, env.submissions.Lock(ctx, userID, sub.ID))
	return resp
}

func TestCompileMissedMonthCreatesNoRow(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	drafter := env.addUser(t, "sub-drafter", "drafter@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, drafter.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)

	// An unlocked draft does not count.
	_, err = env.submissions.SaveDraft(ctx, drafter.ID, circleID, "2025-06", prompts[0].ID, "never finished")
	require.NoError(t, err)

	res, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)
	assert.True(t, res.MissedMonth)

	_, err = env.newsletterRepo.GetByCircleAndCycle(ctx, circleID, "2025-06")
	assert.ErrorIs(t, err, newsletter.ErrNotFound)

	// A missed month never blocks a later cycle from compiling.
	env.lockSubmissionWith(t, drafter.ID, circleID, "2025-07", prompts[0].ID, "a real one")
	res, err = env.newsletters.Compile(ctx, circleID, "2025-07")
	require.NoError(t, err)
	assert.False(t, res.MissedMonth)
	assert.Equal(t, 1, res.IssueNumber)
}

func TestCompileBuildsSectionsAndOmitsEmptyOnes(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	noName := env.addUser(t, "sub-noname", "noname@example.com", "", "")
	circleID := env.newCircle(t, admin.ID, noName.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)

	adminResp, err := env.submissions.SaveDraft(ctx, admin.ID, circleID, "2025-06", prompts[0].ID, "hiked a lot")
	require.NoError(t, err)
	_, err = env.submissions.AddMedia(ctx, admin.ID, adminResp.ID, submission.MediaTypeImage, "obj-hike", "", "https://cdn.test/thumb.jpg")
	require.NoError(t, err)
	adminSub, err := env.submissionRepo.GetSubmission(ctx, admin.ID, circleID, "2025-06")
	require.NoError(t, err)
	require.NoError(t, env.submissions.Lock(ctx, admin.ID, adminSub.ID))
	env.lockSubmissionWith(t, noName.ID, circleID, "2025-06", prompts[0].ID, "mostly worked")

	res, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 2, res.SubmissionCount)

	n, err := env.newsletterRepo.GetByID(ctx, res.NewsletterID)
	require.NoError(t, err)
	doc, err := newsletter.DecodeDocument(n.Content)
	require.NoError(t, err)

	// Only the answered prompt survives; the other defaults are omitted.
	require.Len(t, doc.Sections, 1)
	section := doc.Sections[0]
	assert.Equal(t, prompts[0].Text, section.PromptText)
	require.Len(t, section.Entries, 2)

	byName := map[string]newsletter.Entry{}
	for _, e := range section.Entries {
		byName[e.MemberName] = e
	}
	require.Contains(t, byName, "Ada")
	// No display name falls back to the email address.
	require.Contains(t, byName, "noname@example.com")
	assert.Equal(t, "hiked a lot", byName["Ada"].Text)
	require.Len(t, byName["Ada"].Media, 1)
	assert.Equal(t, "https://store.test/objects/obj-hike", byName["Ada"].Media[0].URL)
	assert.Equal(t, "https://cdn.test/thumb.jpg", byName["Ada"].Media[0].ThumbnailURL)
}

func TestCompileIsIdempotent(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	circleID := env.newCircle(t, admin.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)
	env.lockSubmissionWith(t, admin.ID, circleID, "2025-06", prompts[0].ID, "done")

	first, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)
	require.Equal(t, 1, first.IssueNumber)

	_, err = env.newsletters.Compile(ctx, circleID, "2025-06")
	assert.ErrorIs(t, err, ErrAlreadyCompiled)
}

func TestIssueNumbersStayGapFreeAcrossMissedMonths(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	circleID := env.newCircle(t, admin.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)

	env.lockSubmissionWith(t, admin.ID, circleID, "2025-06", prompts[0].ID, "june")
	res, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 1, res.IssueNumber)

	// July has no submissions at all.
	res, err = env.newsletters.Compile(ctx, circleID, "2025-07")
	require.NoError(t, err)
	assert.True(t, res.MissedMonth)

	env.lockSubmissionWith(t, admin.ID, circleID, "2025-08", prompts[0].ID, "august")
	res, err = env.newsletters.Compile(ctx, circleID, "2025-08")
	require.NoError(t, err)
	assert.Equal(t, 2, res.IssueNumber)
}

func TestSendFiltersRecipientsAndStoresCount(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	unsubscribed := env.addUser(t, "sub-unsub", "unsub@example.com", "Bea", "")
	noEmail := env.addUser(t, "sub-noemail", "", "Cal", "")
	bouncing := env.addUser(t, "sub-bounce", "bounce@example.com", "Dee", "")
	circleID := env.newCircle(t, admin.ID, unsubscribed.ID, noEmail.ID, bouncing.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)
	env.lockSubmissionWith(t, admin.ID, circleID, "2025-06", prompts[0].ID, "hello all")

	require.NoError(t, env.memberships.SetEmailSubscription(ctx, unsubscribed.ID, circleID, false))
	env.email.failTo["bounce@example.com"] = true

	res, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)

	sent, err := env.newsletters.Send(ctx, res.NewsletterID)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, env.email.sent, 1)
	assert.Equal(t, "admin@example.com", env.email.sent[0].To)
	assert.Equal(t, "Morning Crew - Issue #1", env.email.sent[0].Subject)
	assert.Contains(t, env.email.sent[0].HTML, "hello all")

	n, err := env.newsletterRepo.GetByID(ctx, res.NewsletterID)
	require.NoError(t, err)
	require.True(t, n.RecipientCount.Valid)
	assert.EqualValues(t, 1, n.RecipientCount.Int64)
}

func TestMarkReadIsIdempotentAndMemberOnly(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	stranger := env.addUser(t, "sub-stranger", "stranger@example.com", "Eve", "")
	circleID := env.newCircle(t, admin.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)
	env.lockSubmissionWith(t, admin.ID, circleID, "2025-06", prompts[0].ID, "done")
	res, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)

	require.NoError(t, env.newsletters.MarkRead(ctx, admin.ID, res.NewsletterID))
	require.NoError(t, env.newsletters.MarkRead(ctx, admin.ID, res.NewsletterID))

	r, err := env.newsletterRepo.GetRead(ctx, admin.ID, res.NewsletterID)
	require.NoError(t, err)
	assert.NotZero(t, r.ID)

	assert.ErrorIs(t, env.newsletters.MarkRead(ctx, stranger.ID, res.NewsletterID), ErrNotMember)
}

func TestUnreadShrinksAsIssuesAreRead(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	circleID := env.newCircle(t, admin.ID)
	prompts, err := env.circles.ActivePrompts(ctx, admin.ID, circleID)
	require.NoError(t, err)

	env.lockSubmissionWith(t, admin.ID, circleID, "2025-06", prompts[0].ID, "june")
	june, err := env.newsletters.Compile(ctx, circleID, "2025-06")
	require.NoError(t, err)
	env.lockSubmissionWith(t, admin.ID, circleID, "2025-07", prompts[0].ID, "july")
	_, err = env.newsletters.Compile(ctx, circleID, "2025-07")
	require.NoError(t, err)

	unread, err := env.newsletters.Unread(ctx, admin.ID, circleID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	require.NoError(t, env.newsletters.MarkRead(ctx, admin.ID, june.NewsletterID))
	unread, err = env.newsletters.Unread(ctx, admin.ID, circleID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "2025-07", unread[0].CycleID)
}

func TestSendMissedMonthNamesNextDeadline(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	circleID := env.newCircle(t, admin.ID)

	require.NoError(t, env.newsletters.SendMissedMonth(ctx, circleID, "2025-06"))
	require.Len(t, env.email.sent, 1)
	// July's second Saturday.
	assert.Contains(t, env.email.sent[0].HTML, "July 12, 2025")
}

func TestCleanupAdminRemindersClearsCycle(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	admin := env.addUser(t, "sub-admin", "admin@example.com", "Ada", "")
	friend := env.addUser(t, "sub-friend", "friend@example.com", "Bea", "")
	circleID := env.newCircle(t, admin.ID, friend.ID)

	require.NoError(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-06", friend.ID))
	require.NoError(t, env.reminders.SendAdminReminder(ctx, admin.ID, circleID, "2025-07", friend.ID))

	require.NoError(t, env.newsletters.CleanupAdminReminders(ctx, circleID, "2025-06"))

	count, err := env.reminderRepo.CountReminders(ctx, admin.ID, circleID, "2025-06")
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = env.reminderRepo.CountReminders(ctx, admin.ID, circleID, "2025-07")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
