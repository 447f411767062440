// internal/app/sweep_service.go
package app

import (
	"context"
	"time"

	"second_saturday/internal/domain/circle"
	"second_saturday/internal/domain/cycle"

	"github.com/sirupsen/logrus"
)

// SweepService orchestrates the weekly cycle work. Every entry point
// takes the instant it runs for, so sweeps are driven by the scheduler
// in production and by arbitrary instants in tests.
type SweepService struct {
	circleRepo        circle.Repository
	submissionService *SubmissionService
	newsletterService *NewsletterService
	reminderService   *ReminderService
	logger            *logrus.Logger
}

func NewSweepService(
	cr circle.Repository,
	ss *SubmissionService,
	ns *NewsletterService,
	rs *ReminderService,
	logger *logrus.Logger,
) *SweepService {
	return &SweepService{
		circleRepo:        cr,
		submissionService: ss,
		newsletterService: ns,
		reminderService:   rs,
		logger:            logger,
	}
}

// RunLockSweep locks every submission past its deadline. Runs every
// Saturday at the deadline instant; the per-submission deadline check
// makes it safe to run on any Saturday.
func (s *SweepService) RunLockSweep(ctx context.Context, now time.Time) error {
	_, err := s.submissionService.LockPastDeadline(ctx, now.UTC())
	return err
}

// RunNewsletterSweep compiles and dispatches every active circle's
// issue. Gated to the second Saturday; processes circles independently
// so one failure never aborts the siblings. State mutation (compile)
// commits before dispatch, and dispatch failure cannot unwind it.
func (s *SweepService) RunNewsletterSweep(ctx context.Context, now time.Time) error {
	now = now.UTC()
	if !cycle.IsSecondSaturday(now) {
		s.logger.Debug("Not the second Saturday, skipping newsletter sweep")
		return nil
	}

	cycleID := cycle.IDFor(now)
	circles, err := s.circleRepo.ListActiveCircles(ctx)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"circles": len(circles), "cycle_id": cycleID}).Info("Newsletter sweep started")

	for _, c := range circles {
		s.processCircle(ctx, c, cycleID)
	}
	s.logger.Info("Newsletter sweep complete")
	return nil
}

func (s *SweepService) processCircle(ctx context.Context, c *circle.Circle, cycleID string) {
	log := s.logger.WithFields(logrus.Fields{"circle_id": c.ID, "cycle_id": cycleID})

	result, err := s.newsletterService.Compile(ctx, c.ID, cycleID)
	if err != nil {
		if err == ErrAlreadyCompiled {
			log.Info("Newsletter already compiled, skipping circle")
			return
		}
		log.WithError(err).Error("Failed to compile newsletter, continuing with next circle")
		return
	}

	if result.MissedMonth {
		log.Info("Missed month, sending notice")
		if err := s.newsletterService.SendMissedMonth(ctx, c.ID, cycleID); err != nil {
			log.WithError(err).Error("Failed to send missed-month notice")
		}
		return
	}

	if _, err := s.newsletterService.Send(ctx, result.NewsletterID); err != nil {
		log.WithError(err).Error("Failed to send newsletter")
		return
	}
	if err := s.newsletterService.NotifyReady(ctx, c.ID); err != nil {
		log.WithError(err).Error("Failed to push newsletter-ready notification")
	}
	if err := s.newsletterService.CleanupAdminReminders(ctx, c.ID, cycleID); err != nil {
		log.WithError(err).Error("Failed to clean up admin reminders")
	}
}

// RunReminderSweep drives the Wednesday submission reminders.
func (s *SweepService) RunReminderSweep(ctx context.Context, now time.Time) error {
	return s.reminderService.SendSubmissionReminders(ctx, now.UTC())
}
