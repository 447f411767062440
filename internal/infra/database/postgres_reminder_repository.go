// internal/infra/database/postgres_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"second_saturday/internal/domain/reminder"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresReminderRepository struct {
	db *sql.DB
}

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

func (r *PostgresReminderRepository) CreateReminder(ctx context.Context, rem *reminder.AdminReminder) error {
	query := `INSERT INTO admin_reminders (circle_id, admin_user_id, target_user_id, cycle_id, sent_at)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		rem.CircleID, rem.AdminUserID, rem.TargetUserID, rem.CycleID, rem.SentAt,
	).Scan(&rem.ID)
	if err != nil {
		return fmt.Errorf("error creating admin reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) CountReminders(ctx context.Context, adminUserID, circleID int64, cycleID string) (int, error) {
	query := `SELECT COUNT(*) FROM admin_reminders
               WHERE admin_user_id = $1 AND circle_id = $2 AND cycle_id = $3`
	var count int
	if err := r.db.QueryRowContext(ctx, query, adminUserID, circleID, cycleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting admin reminders: %w", err)
	}
	return count, nil
}

func (r *PostgresReminderRepository) DeleteRemindersByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_reminders WHERE circle_id = $1 AND cycle_id = $2`, circleID, cycleID)
	if err != nil {
		return 0, fmt.Errorf("error deleting admin reminders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error checking deleted reminder rows: %w", err)
	}
	return int(affected), nil
}

func (r *PostgresReminderRepository) GetPreference(ctx context.Context, userID int64) (*reminder.Preference, error) {
	query := `SELECT id, user_id, submission_reminders, newsletter_ready, created_at, updated_at
               FROM notification_preferences WHERE user_id = $1`
	p := &reminder.Preference{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.SubmissionReminders, &p.NewsletterReady, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, reminder.ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("error getting notification preference: %w", err)
	}
	return p, nil
}

func (r *PostgresReminderRepository) UpsertPreference(ctx context.Context, p *reminder.Preference) error {
	query := `INSERT INTO notification_preferences (user_id, submission_reminders, newsletter_ready)
               VALUES ($1, $2, $3)
               ON CONFLICT (user_id) DO UPDATE
               SET submission_reminders = EXCLUDED.submission_reminders,
                   newsletter_ready = EXCLUDED.newsletter_ready,
                   updated_at = NOW()
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, p.UserID, p.SubmissionReminders, p.NewsletterReady).Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error upserting notification preference: %w", err)
	}
	return nil
}
