package scheduler

import (
	"context"
	"time"

	"second_saturday/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SweepScheduler drives the three weekly sweeps: locking submissions
// at the Saturday deadline, compiling newsletters right after, and the
// Wednesday submission reminders. All specs run in UTC; the sweeps
// themselves decide whether the current Saturday is the second one.
type SweepScheduler struct {
	cronEngine        *cron.Cron
	sweeps            *app.SweepService
	logger            *logrus.Logger
	cronSpecLock      string
	cronSpecCompile   string
	cronSpecReminders string
}

func NewSweepScheduler(
	sweeps *app.SweepService,
	logger *logrus.Logger,
	cronSpecLock string, // e.g. "59 10 * * 6" (Saturday 10:59 UTC)
	cronSpecCompile string, // e.g. "0 11 * * 6" (Saturday 11:00 UTC)
	cronSpecReminders string, // e.g. "0 11 * * 3" (Wednesday 11:00 UTC)
) *SweepScheduler {
	return &SweepScheduler{
		cronEngine:        cron.New(cron.WithLocation(time.UTC)),
		sweeps:            sweeps,
		logger:            logger,
		cronSpecLock:      cronSpecLock,
		cronSpecCompile:   cronSpecCompile,
		cronSpecReminders: cronSpecReminders,
	}
}

func (s *SweepScheduler) Start() {
	s.logger.Info("Starting sweep scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecLock, func() {
		s.logger.Info("Cron job triggered: lock sweep")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.sweeps.RunLockSweep(ctx, time.Now().UTC()); err != nil {
			s.logger.Errorf("Error during lock sweep: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("Could not add lock sweep cron job: %v", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecCompile, func() {
		s.logger.Info("Cron job triggered: newsletter sweep")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if err := s.sweeps.RunNewsletterSweep(ctx, time.Now().UTC()); err != nil {
			s.logger.Errorf("Error during newsletter sweep: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("Could not add newsletter sweep cron job: %v", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecReminders, func() {
		s.logger.Info("Cron job triggered: reminder sweep")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.sweeps.RunReminderSweep(ctx, time.Now().UTC()); err != nil {
			s.logger.Errorf("Error during reminder sweep: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("Could not add reminder sweep cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Sweep scheduler started with jobs.")
}

func (s *SweepScheduler) Stop() {
	s.logger.Info("Stopping sweep scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Sweep scheduler gracefully stopped.")
}
