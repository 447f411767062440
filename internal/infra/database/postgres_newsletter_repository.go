// internal/infra/database/postgres_newsletter_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"second_saturday/internal/domain/newsletter"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresNewsletterRepository struct {
	db *sql.DB
}

func NewPostgresNewsletterRepository(db *sql.DB) *PostgresNewsletterRepository {
	return &PostgresNewsletterRepository{db: db}
}

const newsletterSelect = `SELECT id, circle_id, cycle_id, issue_number, title, content, submission_count, recipient_count, status, published_at, created_at
               FROM newsletters`

func (r *PostgresNewsletterRepository) Create(ctx context.Context, n *newsletter.Newsletter) error {
	query := `INSERT INTO newsletters (circle_id, cycle_id, issue_number, title, content, submission_count, recipient_count, status, published_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		n.CircleID, n.CycleID, n.IssueNumber, n.Title, n.Content,
		n.SubmissionCount, n.RecipientCount, n.Status, n.PublishedAt,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "newsletters_circle_id_cycle_id_key") {
			return newsletter.ErrDuplicate
		}
		return fmt.Errorf("error creating newsletter: %w", err)
	}
	return nil
}

func (r *PostgresNewsletterRepository) GetByID(ctx context.Context, id int64) (*newsletter.Newsletter, error) {
	query := newsletterSelect + ` WHERE id = $1`
	return r.scanNewsletter(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresNewsletterRepository) GetByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) (*newsletter.Newsletter, error) {
	query := newsletterSelect + ` WHERE circle_id = $1 AND cycle_id = $2`
	return r.scanNewsletter(r.db.QueryRowContext(ctx, query, circleID, cycleID))
}

func (r *PostgresNewsletterRepository) CountByCircle(ctx context.Context, circleID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM newsletters WHERE circle_id = $1`, circleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting newsletters: %w", err)
	}
	return count, nil
}

func (r *PostgresNewsletterRepository) ListByCircle(ctx context.Context, circleID int64) ([]*newsletter.Newsletter, error) {
	query := newsletterSelect + ` WHERE circle_id = $1 ORDER BY issue_number DESC`

	rows, err := r.db.QueryContext(ctx, query, circleID)
	if err != nil {
		return nil, fmt.Errorf("error listing newsletters: %w", err)
	}
	defer rows.Close()

	newsletters := make([]*newsletter.Newsletter, 0)
	for rows.Next() {
		n := &newsletter.Newsletter{}
		if err := rows.Scan(
			&n.ID, &n.CircleID, &n.CycleID, &n.IssueNumber, &n.Title, &n.Content,
			&n.SubmissionCount, &n.RecipientCount, &n.Status, &n.PublishedAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning newsletter: %w", err)
		}
		newsletters = append(newsletters, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating newsletters: %w", err)
	}
	return newsletters, nil
}

func (r *PostgresNewsletterRepository) SetRecipientCount(ctx context.Context, id int64, count int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE newsletters SET recipient_count = $1 WHERE id = $2`, count, id)
	if err != nil {
		return fmt.Errorf("error setting newsletter recipient count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated newsletter rows: %w", err)
	}
	if affected == 0 {
		return newsletter.ErrNotFound
	}
	return nil
}

func (r *PostgresNewsletterRepository) scanNewsletter(row *sql.Row) (*newsletter.Newsletter, error) {
	n := &newsletter.Newsletter{}
	err := row.Scan(
		&n.ID, &n.CircleID, &n.CycleID, &n.IssueNumber, &n.Title, &n.Content,
		&n.SubmissionCount, &n.RecipientCount, &n.Status, &n.PublishedAt, &n.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, newsletter.ErrNotFound
		}
		return nil, fmt.Errorf("error getting newsletter: %w", err)
	}
	return n, nil
}

// --- Read Receipt Methods ---

func (r *PostgresNewsletterRepository) CreateRead(ctx context.Context, read *newsletter.Read) error {
	query := `INSERT INTO newsletter_reads (user_id, circle_id, newsletter_id, read_at)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (user_id, newsletter_id) DO NOTHING
               RETURNING id`

	err := r.db.QueryRowContext(ctx, query, read.UserID, read.CircleID, read.NewsletterID, read.ReadAt).Scan(&read.ID)
	if err != nil {
		if err == sql.ErrNoRows { // conflict: receipt already recorded
			return nil
		}
		return fmt.Errorf("error creating newsletter read: %w", err)
	}
	return nil
}

func (r *PostgresNewsletterRepository) GetRead(ctx context.Context, userID, newsletterID int64) (*newsletter.Read, error) {
	query := `SELECT id, user_id, circle_id, newsletter_id, read_at
               FROM newsletter_reads WHERE user_id = $1 AND newsletter_id = $2`
	read := &newsletter.Read{}
	err := r.db.QueryRowContext(ctx, query, userID, newsletterID).Scan(
		&read.ID, &read.UserID, &read.CircleID, &read.NewsletterID, &read.ReadAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, newsletter.ErrReadNotFound
		}
		return nil, fmt.Errorf("error getting newsletter read: %w", err)
	}
	return read, nil
}

func (r *PostgresNewsletterRepository) DeleteReadsByUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM newsletter_reads WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error deleting newsletter reads: %w", err)
	}
	return nil
}
