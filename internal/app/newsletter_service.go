// internal/app/newsletter_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"html"

	"second_saturday/internal/domain/circle"
	"second_saturday/internal/domain/cycle"
	"second_saturday/internal/domain/newsletter"
	"second_saturday/internal/domain/notify"
	"second_saturday/internal/domain/objectstore"
	"second_saturday/internal/domain/reminder"
	"second_saturday/internal/domain/submission"
	"second_saturday/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// ErrAlreadyCompiled rejects a second compilation for the same
// (circle, cycle); the unique newsletter row is the enforcement point.
var ErrAlreadyCompiled = fmt.Errorf("newsletter already compiled for this circle and cycle")

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// CompileResult reports one compilation outcome.
type CompileResult struct {
	MissedMonth     bool
	NewsletterID    int64
	IssueNumber     int
	SubmissionCount int
}

// NewsletterService aggregates locked submissions into issues and
// delivers them.
type NewsletterService struct {
	circleRepo     circle.Repository
	submissionRepo submission.Repository
	newsletterRepo newsletter.Repository
	reminderRepo   reminder.Repository
	userRepo       user.Repository
	email          notify.EmailSender
	push           notify.PushSender
	store          objectstore.Store
	appURL         string
	clock          Clock
	logger         *logrus.Logger
}

func NewNewsletterService(
	cr circle.Repository,
	sr submission.Repository,
	nr newsletter.Repository,
	rr reminder.Repository,
	ur user.Repository,
	email notify.EmailSender,
	push notify.PushSender,
	store objectstore.Store,
	appURL string,
	clock Clock,
	logger *logrus.Logger,
) *NewsletterService {
	return &NewsletterService{
		circleRepo:     cr,
		submissionRepo: sr,
		newsletterRepo: nr,
		reminderRepo:   rr,
		userRepo:       ur,
		email:          email,
		push:           push,
		store:          store,
		appURL:         appURL,
		clock:          clock,
		logger:         logger,
	}
}

// Compile aggregates the cycle's locked submissions into a newsletter.
// Zero locked submissions short-circuit to a missed-month result with
// no row created; a second successful compilation for the pair is
// impossible (ErrAlreadyCompiled).
func (s *NewsletterService) Compile(ctx context.Context, circleID int64, cycleID string) (*CompileResult, error) {
	if _, _, err := cycle.Parse(cycleID); err != nil {
		return nil, err
	}

	existing, err := s.newsletterRepo.GetByCircleAndCycle(ctx, circleID, cycleID)
	if err != nil && err != newsletter.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing newsletter: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyCompiled
	}

	subs, err := s.submissionRepo.ListSubmissionsByCircleAndCycle(ctx, circleID, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	var locked []*submission.Submission
	for _, sub := range subs {
		if sub.Locked() {
			locked = append(locked, sub)
		}
	}
	if len(locked) == 0 {
		return &CompileResult{MissedMonth: true}, nil
	}

	prompts, err := activePrompts(ctx, s.circleRepo, circleID)
	if err != nil {
		return nil, err
	}

	doc := newsletter.Document{}
	for _, p := range prompts {
		section := newsletter.Section{PromptText: p.Text}
		for _, sub := range locked {
			resp, err := s.submissionRepo.GetResponse(ctx, sub.ID, p.ID)
			if err != nil {
				if err == submission.ErrResponseNotFound {
					continue
				}
				return nil, fmt.Errorf("failed to get response: %w", err)
			}
			entry := newsletter.Entry{
				MemberName: s.memberName(ctx, sub.UserID),
				Text:       resp.Text,
				Media:      s.mediaRefs(ctx, resp.ID),
			}
			section.Entries = append(section.Entries, entry)
		}
		// A prompt with zero responses is omitted entirely.
		if len(section.Entries) > 0 {
			doc.Sections = append(doc.Sections, section)
		}
	}

	content, err := newsletter.EncodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode newsletter document: %w", err)
	}

	prior, err := s.newsletterRepo.CountByCircle(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to count prior newsletters: %w", err)
	}

	now := s.clock.Now()
	n := &newsletter.Newsletter{
		CircleID:        circleID,
		CycleID:         cycleID,
		IssueNumber:     prior + 1,
		Content:         content,
		SubmissionCount: len(locked),
		Status:          newsletter.StatusPublished,
		PublishedAt:     sql.NullTime{Time: now, Valid: true},
		CreatedAt:       now,
	}
	if err := s.newsletterRepo.Create(ctx, n); err != nil {
		if err == newsletter.ErrDuplicate {
			return nil, ErrAlreadyCompiled
		}
		return nil, fmt.Errorf("failed to create newsletter: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"circle_id":    circleID,
		"cycle_id":     cycleID,
		"issue_number": n.IssueNumber,
		"submissions":  len(locked),
	}).Info("Newsletter compiled")
	return &CompileResult{
		NewsletterID:    n.ID,
		IssueNumber:     n.IssueNumber,
		SubmissionCount: len(locked),
	}, nil
}

// Send emails the issue to every eligible recipient. Per-recipient
// failure is non-fatal; the final sent count is stored on the row.
func (s *NewsletterService) Send(ctx context.Context, newsletterID int64) (int, error) {
	n, err := s.newsletterRepo.GetByID(ctx, newsletterID)
	if err != nil {
		return 0, fmt.Errorf("failed to get newsletter: %w", err)
	}
	c, err := s.circleRepo.GetCircleByID(ctx, n.CircleID)
	if err != nil {
		return 0, fmt.Errorf("failed to get circle: %w", err)
	}

	recipients, err := s.emailRecipients(ctx, n.CircleID)
	if err != nil {
		return 0, err
	}

	subject := fmt.Sprintf("%s - Issue #%d", c.Name, n.IssueNumber)
	body := s.renderNewsletterHTML(c, n)

	sent := 0
	for _, r := range recipients {
		if err := s.email.Send(ctx, notify.Email{To: r.Email, Subject: subject, HTML: body}); err != nil {
			s.logger.WithField("recipient", r.Email).WithError(err).Error("Failed to send newsletter email")
			continue
		}
		sent++
	}

	if err := s.newsletterRepo.SetRecipientCount(ctx, newsletterID, sent); err != nil {
		return sent, fmt.Errorf("failed to store recipient count: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"newsletter_id": newsletterID,
		"sent":          sent,
		"recipients":    len(recipients),
	}).Info("Newsletter sent")
	return sent, nil
}

// SendMissedMonth emails the missed-month notice with the next cycle's
// deadline.
func (s *NewsletterService) SendMissedMonth(ctx context.Context, circleID int64, cycleID string) error {
	c, err := s.circleRepo.GetCircleByID(ctx, circleID)
	if err != nil {
		return fmt.Errorf("failed to get circle: %w", err)
	}
	recipients, err := s.emailRecipients(ctx, circleID)
	if err != nil {
		return err
	}

	nextDeadline, err := cycle.NextDeadline(cycleID)
	if err != nil {
		return err
	}
	deadlineText := fmt.Sprintf("%s %d, %d",
		monthNames[int(nextDeadline.Month())-1], nextDeadline.Day(), nextDeadline.Year())

	subject := fmt.Sprintf("No submissions this month for %s", c.Name)
	body := fmt.Sprintf(
		"<h1>%s missed this month</h1><p>Nobody submitted this cycle. The next deadline is %s.</p><p><a href=%q>Visit your circle</a></p>",
		html.EscapeString(c.Name), deadlineText, fmt.Sprintf("%s/circles/%d", s.appURL, circleID),
	)

	for _, r := range recipients {
		if err := s.email.Send(ctx, notify.Email{To: r.Email, Subject: subject, HTML: body}); err != nil {
			s.logger.WithField("recipient", r.Email).WithError(err).Error("Failed to send missed-month email")
		}
	}
	s.logger.WithFields(logrus.Fields{"circle_id": circleID, "cycle_id": cycleID}).Info("Missed-month notice sent")
	return nil
}

// NotifyReady pushes the newsletter-ready notification to opted-in
// active members.
func (s *NewsletterService) NotifyReady(ctx context.Context, circleID int64) error {
	c, err := s.circleRepo.GetCircleByID(ctx, circleID)
	if err != nil {
		return fmt.Errorf("failed to get circle: %w", err)
	}
	members, err := s.circleRepo.ListMembershipsByCircle(ctx, circleID)
	if err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}

	var playerIDs []string
	for _, m := range members {
		if !m.Eligible() {
			continue
		}
		if !s.wantsNewsletterReady(ctx, m.UserID) {
			continue
		}
		u, err := s.userRepo.GetByID(ctx, m.UserID)
		if err != nil {
			continue
		}
		if u.PushPlayerID.Valid {
			playerIDs = append(playerIDs, u.PushPlayerID.String)
		}
	}
	if len(playerIDs) == 0 {
		return nil
	}

	err = s.push.Send(ctx, notify.Push{
		PlayerIDs: playerIDs,
		Title:     "Newsletter Ready!",
		Message:   fmt.Sprintf("The latest %s newsletter is ready to read!", c.Name),
		Data:      map[string]string{"type": "newsletter_ready", "circleId": fmt.Sprint(circleID)},
	})
	if err != nil {
		// Push is fire-and-forget; log and move on.
		s.logger.WithField("circle_id", circleID).WithError(err).Error("Failed to send newsletter-ready push")
	}
	return nil
}

// MarkRead records a read receipt for the caller.
func (s *NewsletterService) MarkRead(ctx context.Context, userID, newsletterID int64) error {
	n, err := s.newsletterRepo.GetByID(ctx, newsletterID)
	if err != nil {
		return fmt.Errorf("failed to get newsletter: %w", err)
	}
	if _, err := requireMembership(ctx, s.circleRepo, userID, n.CircleID); err != nil {
		return err
	}
	existing, err := s.newsletterRepo.GetRead(ctx, userID, newsletterID)
	if err != nil && err != newsletter.ErrReadNotFound {
		return fmt.Errorf("failed to check read receipt: %w", err)
	}
	if existing != nil {
		return nil
	}
	r := &newsletter.Read{
		UserID:       userID,
		CircleID:     n.CircleID,
		NewsletterID: newsletterID,
		ReadAt:       s.clock.Now(),
	}
	if err := s.newsletterRepo.CreateRead(ctx, r); err != nil {
		return fmt.Errorf("failed to create read receipt: %w", err)
	}
	return nil
}

// Unread lists the circle's newsletters the caller has not marked
// read, newest first.
func (s *NewsletterService) Unread(ctx context.Context, userID, circleID int64) ([]*newsletter.Newsletter, error) {
	if _, err := requireMembership(ctx, s.circleRepo, userID, circleID); err != nil {
		return nil, err
	}
	all, err := s.newsletterRepo.ListByCircle(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list newsletters: %w", err)
	}
	var unread []*newsletter.Newsletter
	for _, n := range all {
		_, err := s.newsletterRepo.GetRead(ctx, userID, n.ID)
		if err == newsletter.ErrReadNotFound {
			unread = append(unread, n)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check read receipt: %w", err)
		}
	}
	return unread, nil
}

type emailRecipient struct {
	Email string
	Name  string
}

// emailRecipients are active, non-blocked, email-subscribed members
// with an email address.
func (s *NewsletterService) emailRecipients(ctx context.Context, circleID int64) ([]emailRecipient, error) {
	members, err := s.circleRepo.ListMembershipsByCircle(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	var out []emailRecipient
	for _, m := range members {
		if !m.Eligible() || m.EmailUnsubscribed {
			continue
		}
		u, err := s.userRepo.GetByID(ctx, m.UserID)
		if err != nil {
			s.logger.WithField("user_id", m.UserID).WithError(err).Warn("Skipping recipient without user record")
			continue
		}
		if u.Email == "" {
			continue
		}
		out = append(out, emailRecipient{Email: u.Email, Name: u.DisplayName()})
	}
	return out, nil
}

func (s *NewsletterService) memberName(ctx context.Context, userID int64) string {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "Unknown Member"
	}
	return u.DisplayName()
}

func (s *NewsletterService) mediaRefs(ctx context.Context, responseID int64) []newsletter.MediaRef {
	media, err := s.submissionRepo.ListMediaByResponse(ctx, responseID)
	if err != nil {
		s.logger.WithField("response_id", responseID).WithError(err).Warn("Failed to list media for newsletter entry")
		return nil
	}
	var refs []newsletter.MediaRef
	for _, m := range media {
		ref := newsletter.MediaRef{Type: string(m.Type)}
		if m.StorageID.Valid {
			url, err := s.store.URL(ctx, m.StorageID.String)
			if err != nil {
				s.logger.WithField("storage_id", m.StorageID.String).WithError(err).Warn("Failed to resolve media URL")
			} else {
				ref.URL = url
			}
		}
		if m.ThumbnailURL.Valid {
			ref.ThumbnailURL = m.ThumbnailURL.String
		}
		refs = append(refs, ref)
	}
	return refs
}

// renderNewsletterHTML produces the email body. The interactive app is
// the primary reading surface; the email is a plain digest.
func (s *NewsletterService) renderNewsletterHTML(c *circle.Circle, n *newsletter.Newsletter) string {
	doc, err := newsletter.DecodeDocument(n.Content)
	if err != nil {
		s.logger.WithField("newsletter_id", n.ID).WithError(err).Error("Failed to decode newsletter document for rendering")
	}

	year, month, perr := cycle.Parse(n.CycleID)
	date := n.CycleID
	if perr == nil {
		date = fmt.Sprintf("%s %d", monthNames[int(month)-1], year)
	}

	body := fmt.Sprintf("<h1>%s</h1><h2>Issue #%d - %s</h2>", html.EscapeString(c.Name), n.IssueNumber, date)
	for _, section := range doc.Sections {
		body += fmt.Sprintf("<h3>%s</h3>", html.EscapeString(section.PromptText))
		for _, e := range section.Entries {
			body += fmt.Sprintf("<p><strong>%s</strong>: %s</p>", html.EscapeString(e.MemberName), html.EscapeString(e.Text))
		}
	}
	body += fmt.Sprintf("<p><a href=%q>View in app</a> | <a href=%q>Unsubscribe</a></p>",
		fmt.Sprintf("%s/circles/%d/newsletters/%d", s.appURL, c.ID, n.ID),
		fmt.Sprintf("%s/circles/%d/unsubscribe", s.appURL, c.ID),
	)
	return body
}

// CleanupAdminReminders removes the cycle's reminder rows after a
// successful send.
func (s *NewsletterService) CleanupAdminReminders(ctx context.Context, circleID int64, cycleID string) error {
	deleted, err := s.reminderRepo.DeleteRemindersByCircleAndCycle(ctx, circleID, cycleID)
	if err != nil {
		return fmt.Errorf("failed to clean up admin reminders: %w", err)
	}
	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"circle_id": circleID,
			"cycle_id":  cycleID,
			"deleted":   deleted,
		}).Info("Cleaned up admin reminders")
	}
	return nil
}

func (s *NewsletterService) wantsNewsletterReady(ctx context.Context, userID int64) bool {
	p, err := s.reminderRepo.GetPreference(ctx, userID)
	if err != nil {
		return true // absent row implies opted-in
	}
	return p.NewsletterReady
}
