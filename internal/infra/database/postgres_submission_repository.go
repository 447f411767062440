// internal/infra/database/postgres_submission_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"second_saturday/internal/domain/submission"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

// --- Submission Methods ---

const submissionSelect = `SELECT id, circle_id, user_id, cycle_id, submitted_at, locked_at, created_at, updated_at
               FROM submissions`

func (r *PostgresSubmissionRepository) CreateSubmission(ctx context.Context, s *submission.Submission) error {
	query := `INSERT INTO submissions (circle_id, user_id, cycle_id, submitted_at, locked_at)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.CircleID, s.UserID, s.CycleID, s.SubmittedAt, s.LockedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "submissions_user_id_circle_id_cycle_id_key") {
			return submission.ErrDuplicateSubmission
		}
		return fmt.Errorf("error creating submission: %w", err)
	}
	return nil
}

func (r *PostgresSubmissionRepository) GetSubmissionByID(ctx context.Context, id int64) (*submission.Submission, error) {
	query := submissionSelect + ` WHERE id = $1`
	return r.scanSubmission(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresSubmissionRepository) GetSubmission(ctx context.Context, userID, circleID int64, cycleID string) (*submission.Submission, error) {
	query := submissionSelect + ` WHERE user_id = $1 AND circle_id = $2 AND cycle_id = $3`
	return r.scanSubmission(r.db.QueryRowContext(ctx, query, userID, circleID, cycleID))
}

func (r *PostgresSubmissionRepository) UpdateSubmission(ctx context.Context, s *submission.Submission) error {
	query := `UPDATE submissions
               SET submitted_at = $1, locked_at = $2, updated_at = NOW()
               WHERE id = $3
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, s.SubmittedAt, s.LockedAt, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return submission.ErrSubmissionNotFound
		}
		return fmt.Errorf("error updating submission: %w", err)
	}
	return nil
}

func (r *PostgresSubmissionRepository) DeleteSubmission(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted submission rows: %w", err)
	}
	if affected == 0 {
		return submission.ErrSubmissionNotFound
	}
	return nil
}

func (r *PostgresSubmissionRepository) ListUnlockedSubmissions(ctx context.Context) ([]*submission.Submission, error) {
	query := submissionSelect + ` WHERE locked_at IS NULL ORDER BY id`
	return r.listSubmissions(ctx, query)
}

func (r *PostgresSubmissionRepository) ListSubmissionsByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) ([]*submission.Submission, error) {
	query := submissionSelect + ` WHERE circle_id = $1 AND cycle_id = $2 ORDER BY id`
	return r.listSubmissions(ctx, query, circleID, cycleID)
}

func (r *PostgresSubmissionRepository) ListSubmissionsByUserAndCircle(ctx context.Context, userID, circleID int64) ([]*submission.Submission, error) {
	query := submissionSelect + ` WHERE user_id = $1 AND circle_id = $2 ORDER BY cycle_id`
	return r.listSubmissions(ctx, query, userID, circleID)
}

func (r *PostgresSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID int64) ([]*submission.Submission, error) {
	query := submissionSelect + ` WHERE user_id = $1 ORDER BY cycle_id`
	return r.listSubmissions(ctx, query, userID)
}

func (r *PostgresSubmissionRepository) scanSubmission(row *sql.Row) (*submission.Submission, error) {
	s := &submission.Submission{}
	err := row.Scan(&s.ID, &s.CircleID, &s.UserID, &s.CycleID, &s.SubmittedAt, &s.LockedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, submission.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("error getting submission: %w", err)
	}
	return s, nil
}

func (r *PostgresSubmissionRepository) listSubmissions(ctx context.Context, query string, args ...interface{}) ([]*submission.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]*submission.Submission, 0)
	for rows.Next() {
		s := &submission.Submission{}
		if err := rows.Scan(&s.ID, &s.CircleID, &s.UserID, &s.CycleID, &s.SubmittedAt, &s.LockedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return subs, nil
}

// --- Response Methods ---

func (r *PostgresSubmissionRepository) CreateResponse(ctx context.Context, resp *submission.Response) error {
	query := `INSERT INTO responses (submission_id, prompt_id, text)
               VALUES ($1, $2, $3)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, resp.SubmissionID, resp.PromptID, resp.Text).Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "responses_submission_id_prompt_id_key") {
			return submission.ErrDuplicateResponse
		}
		return fmt.Errorf("error creating response: %w", err)
	}
	return nil
}

func (r *PostgresSubmissionRepository) GetResponseByID(ctx context.Context, id int64) (*submission.Response, error) {
	query := `SELECT id, submission_id, prompt_id, text, created_at, updated_at
               FROM responses WHERE id = $1`
	return r.scanResponse(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresSubmissionRepository) GetResponse(ctx context.Context, submissionID, promptID int64) (*submission.Response, error) {
	query := `SELECT id, submission_id, prompt_id, text, created_at, updated_at
               FROM responses WHERE submission_id = $1 AND prompt_id = $2`
	return r.scanResponse(r.db.QueryRowContext(ctx, query, submissionID, promptID))
}

func (r *PostgresSubmissionRepository) UpdateResponse(ctx context.Context, resp *submission.Response) error {
	query := `UPDATE responses SET text = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, resp.Text, resp.ID).Scan(&resp.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return submission.ErrResponseNotFound
		}
		return fmt.Errorf("error updating response: %w", err)
	}
	return nil
}

func (r *PostgresSubmissionRepository) DeleteResponse(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM responses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted response rows: %w", err)
	}
	if affected == 0 {
		return submission.ErrResponseNotFound
	}
	return nil
}

func (r *PostgresSubmissionRepository) ListResponsesBySubmission(ctx context.Context, submissionID int64) ([]*submission.Response, error) {
	query := `SELECT id, submission_id, prompt_id, text, created_at, updated_at
               FROM responses WHERE submission_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("error listing responses: %w", err)
	}
	defer rows.Close()

	responses := make([]*submission.Response, 0)
	for rows.Next() {
		resp := &submission.Response{}
		if err := rows.Scan(&resp.ID, &resp.SubmissionID, &resp.PromptID, &resp.Text, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning response: %w", err)
		}
		responses = append(responses, resp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating responses: %w", err)
	}
	return responses, nil
}

func (r *PostgresSubmissionRepository) scanResponse(row *sql.Row) (*submission.Response, error) {
	resp := &submission.Response{}
	err := row.Scan(&resp.ID, &resp.SubmissionID, &resp.PromptID, &resp.Text, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, submission.ErrResponseNotFound
		}
		return nil, fmt.Errorf("error getting response: %w", err)
	}
	return resp, nil
}

// --- Media Methods ---

func (r *PostgresSubmissionRepository) CreateMedia(ctx context.Context, m *submission.Media) error {
	query := `INSERT INTO media (response_id, storage_id, asset_id, type, thumbnail_url, sort_order, uploaded_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		m.ResponseID, m.StorageID, m.AssetID, m.Type, m.ThumbnailURL, m.Order, m.UploadedAt,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating media: %w", err)
	}
	return nil
}

func (r *PostgresSubmissionRepository) GetMediaByID(ctx context.Context, id int64) (*submission.Media, error) {
	query := `SELECT id, response_id, storage_id, asset_id, type, thumbnail_url, sort_order, uploaded_at, created_at
               FROM media WHERE id = $1`
	m := &submission.Media{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ResponseID, &m.StorageID, &m.AssetID, &m.Type, &m.ThumbnailURL, &m.Order, &m.UploadedAt, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, submission.ErrMediaNotFound
		}
		return nil, fmt.Errorf("error getting media by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresSubmissionRepository) UpdateMediaOrder(ctx context.Context, id int64, order int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE media SET sort_order = $1 WHERE id = $2`, order, id)
	if err != nil {
		return fmt.Errorf("error updating media order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated media rows: %w", err)
	}
	if affected == 0 {
		return submission.ErrMediaNotFound
	}
	return nil
}

func (r *PostgresSubmissionRepository) DeleteMedia(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting media: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted media rows: %w", err)
	}
	if affected == 0 {
		return submission.ErrMediaNotFound
	}
	return nil
}

func (r *PostgresSubmissionRepository) ListMediaByResponse(ctx context.Context, responseID int64) ([]*submission.Media, error) {
	query := `SELECT id, response_id, storage_id, asset_id, type, thumbnail_url, sort_order, uploaded_at, created_at
               FROM media WHERE response_id = $1 ORDER BY sort_order`

	rows, err := r.db.QueryContext(ctx, query, responseID)
	if err != nil {
		return nil, fmt.Errorf("error listing media: %w", err)
	}
	defer rows.Close()

	media := make([]*submission.Media, 0)
	for rows.Next() {
		m := &submission.Media{}
		if err := rows.Scan(
			&m.ID, &m.ResponseID, &m.StorageID, &m.AssetID, &m.Type, &m.ThumbnailURL, &m.Order, &m.UploadedAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning media: %w", err)
		}
		media = append(media, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return media, nil
}
