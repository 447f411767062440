// internal/app/reminder_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"second_saturday/internal/domain/circle"
	"second_saturday/internal/domain/cycle"
	"second_saturday/internal/domain/notify"
	"second_saturday/internal/domain/reminder"
	"second_saturday/internal/domain/submission"
	"second_saturday/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// ErrReminderCapReached rejects the fourth reminder in a cycle,
// whatever the mix of targeted and bulk calls.
var ErrReminderCapReached = fmt.Errorf("maximum of 3 admin reminders per cycle reached")

// ReminderService enforces the admin-reminder rate limit, resolves
// notification preferences and runs the weekly submission-reminder
// sweep.
type ReminderService struct {
	circleRepo     circle.Repository
	submissionRepo submission.Repository
	reminderRepo   reminder.Repository
	userRepo       user.Repository
	push           notify.PushSender
	clock          Clock
	logger         *logrus.Logger
}

func NewReminderService(
	cr circle.Repository,
	sr submission.Repository,
	rr reminder.Repository,
	ur user.Repository,
	push notify.PushSender,
	clock Clock,
	logger *logrus.Logger,
) *ReminderService {
	return &ReminderService{
		circleRepo:     cr,
		submissionRepo: sr,
		reminderRepo:   rr,
		userRepo:       ur,
		push:           push,
		clock:          clock,
		logger:         logger,
	}
}

// SendAdminReminder nudges one member. Counts one record against the
// per-(admin, circle, cycle) cap; the target must be an active,
// non-blocked member.
func (s *ReminderService) SendAdminReminder(ctx context.Context, adminID, circleID int64, cycleID string, targetID int64) error {
	if _, err := requireAdmin(ctx, s.circleRepo, adminID, circleID); err != nil {
		return err
	}
	if _, _, err := cycle.Parse(cycleID); err != nil {
		return err
	}
	if err := s.checkCap(ctx, adminID, circleID, cycleID); err != nil {
		return err
	}

	target, err := s.circleRepo.GetMembership(ctx, targetID, circleID)
	if err != nil {
		if err == circle.ErrMembershipNotFound {
			return ErrTargetNotActiveMember
		}
		return fmt.Errorf("failed to get target membership: %w", err)
	}
	if !target.Eligible() {
		return ErrTargetNotActiveMember
	}

	rec := &reminder.AdminReminder{
		CircleID:     circleID,
		AdminUserID:  adminID,
		TargetUserID: sql.NullInt64{Int64: targetID, Valid: true},
		CycleID:      cycleID,
		SentAt:       s.clock.Now(),
	}
	if err := s.reminderRepo.CreateReminder(ctx, rec); err != nil {
		return fmt.Errorf("failed to record admin reminder: %w", err)
	}

	// Dispatch after the record is committed; delivery failure never
	// unwinds the reminder.
	s.dispatchReminderPush(ctx, circleID, cycleID, []int64{targetID})
	return nil
}

// SendBulkAdminReminder nudges every non-submitter in one dispatch,
// counting a single record against the same cap.
func (s *ReminderService) SendBulkAdminReminder(ctx context.Context, adminID, circleID int64, cycleID string) (int, error) {
	if _, err := requireAdmin(ctx, s.circleRepo, adminID, circleID); err != nil {
		return 0, err
	}
	if _, _, err := cycle.Parse(cycleID); err != nil {
		return 0, err
	}
	if err := s.checkCap(ctx, adminID, circleID, cycleID); err != nil {
		return 0, err
	}

	rec := &reminder.AdminReminder{
		CircleID:    circleID,
		AdminUserID: adminID,
		CycleID:     cycleID,
		SentAt:      s.clock.Now(),
	}
	if err := s.reminderRepo.CreateReminder(ctx, rec); err != nil {
		return 0, fmt.Errorf("failed to record bulk admin reminder: %w", err)
	}

	targets, err := s.circleNonSubmitters(ctx, circleID, cycleID)
	if err != nil {
		return 0, err
	}
	notified := s.dispatchReminderPush(ctx, circleID, cycleID, targets)
	return notified, nil
}

func (s *ReminderService) checkCap(ctx context.Context, adminID, circleID int64, cycleID string) error {
	count, err := s.reminderRepo.CountReminders(ctx, adminID, circleID, cycleID)
	if err != nil {
		return fmt.Errorf("failed to count admin reminders: %w", err)
	}
	if count >= reminder.MaxPerCycle {
		return ErrReminderCapReached
	}
	return nil
}

// circleNonSubmitters computes the non-submitter set for a circle.
func (s *ReminderService) circleNonSubmitters(ctx context.Context, circleID int64, cycleID string) ([]int64, error) {
	members, err := s.circleRepo.ListMembershipsByCircle(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	subs, err := s.submissionRepo.ListSubmissionsByCircleAndCycle(ctx, circleID, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return nonSubmitters(members, subs, cycleID), nil
}

// dispatchReminderPush resolves push bindings for targets and fires one
// push batch. Returns the number of users actually notified.
func (s *ReminderService) dispatchReminderPush(ctx context.Context, circleID int64, cycleID string, targets []int64) int {
	if len(targets) == 0 {
		return 0
	}

	circleName := "your circle"
	if c, err := s.circleRepo.GetCircleByID(ctx, circleID); err == nil {
		circleName = c.Name
	}

	var playerIDs []string
	for _, userID := range targets {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			s.logger.WithField("user_id", userID).WithError(err).Warn("Skipping reminder target without user record")
			continue
		}
		if u.PushPlayerID.Valid {
			playerIDs = append(playerIDs, u.PushPlayerID.String)
		}
	}
	if len(playerIDs) == 0 {
		return 0
	}

	err := s.push.Send(ctx, notify.Push{
		PlayerIDs: playerIDs,
		Title:     "Submission Reminder",
		Message:   fmt.Sprintf("Your admin in %s is reminding you to submit!", circleName),
		Data:      map[string]string{"type": "admin_reminder", "circleId": fmt.Sprint(circleID), "cycleId": cycleID},
	})
	if err != nil {
		s.logger.WithField("circle_id", circleID).WithError(err).Error("Failed to dispatch admin reminder push")
		return 0
	}
	return len(playerIDs)
}

// Preferences resolves the user's notification preferences; a missing
// row means opted-in to both reminder types.
func (s *ReminderService) Preferences(ctx context.Context, userID int64) (*reminder.Preference, error) {
	p, err := s.reminderRepo.GetPreference(ctx, userID)
	if err != nil {
		if err == reminder.ErrPreferenceNotFound {
			return &reminder.Preference{
				UserID:              userID,
				SubmissionReminders: true,
				NewsletterReady:     true,
			}, nil
		}
		return nil, fmt.Errorf("failed to get notification preference: %w", err)
	}
	return p, nil
}

// UpdatePreferences creates or overwrites the user's preference row.
func (s *ReminderService) UpdatePreferences(ctx context.Context, userID int64, submissionReminders, newsletterReady bool) error {
	now := s.clock.Now()
	p := &reminder.Preference{
		UserID:              userID,
		SubmissionReminders: submissionReminders,
		NewsletterReady:     newsletterReady,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.reminderRepo.UpsertPreference(ctx, p); err != nil {
		return fmt.Errorf("failed to upsert notification preference: %w", err)
	}
	return nil
}

// wantsSubmissionReminders resolves the per-field opt-in.
func (s *ReminderService) wantsSubmissionReminders(ctx context.Context, userID int64) bool {
	p, err := s.Preferences(ctx, userID)
	if err != nil {
		s.logger.WithField("user_id", userID).WithError(err).Warn("Preference lookup failed, defaulting to opted-in")
		return true
	}
	return p.SubmissionReminders
}

// SendSubmissionReminders is the Wednesday sweep: fires only when the
// coming Saturday is the second Saturday, then nudges every opted-in
// non-submitter of every active circle. Per-circle failures are
// isolated.
func (s *ReminderService) SendSubmissionReminders(ctx context.Context, now time.Time) error {
	comingSaturday := now.UTC().Add(3 * 24 * time.Hour)
	if !cycle.IsSecondSaturday(comingSaturday) {
		s.logger.Debug("Coming Saturday is not the second Saturday, skipping submission reminders")
		return nil
	}

	cycleID := cycle.IDFor(now)
	circles, err := s.circleRepo.ListActiveCircles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active circles: %w", err)
	}

	for _, c := range circles {
		targets, err := s.circleNonSubmitters(ctx, c.ID, cycleID)
		if err != nil {
			s.logger.WithField("circle_id", c.ID).WithError(err).Error("Failed to compute non-submitters, continuing with next circle")
			continue
		}

		var optedIn []int64
		for _, userID := range targets {
			if s.wantsSubmissionReminders(ctx, userID) {
				optedIn = append(optedIn, userID)
			}
		}
		if len(optedIn) == 0 {
			continue
		}

		var playerIDs []string
		for _, userID := range optedIn {
			u, err := s.userRepo.GetByID(ctx, userID)
			if err != nil {
				continue
			}
			if u.PushPlayerID.Valid {
				playerIDs = append(playerIDs, u.PushPlayerID.String)
			}
		}
		if len(playerIDs) == 0 {
			continue
		}

		err = s.push.Send(ctx, notify.Push{
			PlayerIDs: playerIDs,
			Title:     "Submission Reminder",
			Message:   fmt.Sprintf("Don't forget to submit to %s before Saturday's deadline!", c.Name),
			Data:      map[string]string{"type": "submission_reminder", "circleId": fmt.Sprint(c.ID)},
		})
		if err != nil {
			s.logger.WithField("circle_id", c.ID).WithError(err).Error("Failed to send submission reminders, continuing with next circle")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"circle_id":  c.ID,
			"recipients": len(playerIDs),
		}).Info("Sent submission reminders")
	}
	return nil
}
