// internal/infra/database/postgres_circle_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"second_saturday/internal/domain/circle"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresCircleRepository struct {
	db *sql.DB
}

func NewPostgresCircleRepository(db *sql.DB) *PostgresCircleRepository {
	return &PostgresCircleRepository{db: db}
}

// queryRunner is satisfied by both *sql.DB and *sql.Tx, so every method
// works inside or outside WithinTx.
type queryRunner interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type circleTxKey struct{}

// WithinTx wraps fn in one database transaction; repository calls made
// with the context fn receives join it. Nested calls reuse the open
// transaction.
func (r *PostgresCircleRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(circleTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, circleTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (r *PostgresCircleRepository) q(ctx context.Context) queryRunner {
	if tx, ok := ctx.Value(circleTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// --- Circle Methods ---

func (r *PostgresCircleRepository) CreateCircle(ctx context.Context, c *circle.Circle) error {
	query := `INSERT INTO circles (name, description, icon_storage_id, cover_storage_id, admin_id, invite_code, timezone)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`

	err := r.q(ctx).QueryRowContext(ctx, query,
		c.Name, c.Description, c.IconStorageID, c.CoverStorageID, c.AdminID, c.InviteCode, c.Timezone,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "circles_invite_code_key") {
			return circle.ErrDuplicateInviteCode
		}
		return fmt.Errorf("error creating circle: %w", err)
	}
	return nil
}

func (r *PostgresCircleRepository) GetCircleByID(ctx context.Context, id int64) (*circle.Circle, error) {
	query := circleSelect + ` WHERE id = $1`
	return r.scanCircle(r.q(ctx).QueryRowContext(ctx, query, id), "ID")
}

func (r *PostgresCircleRepository) GetCircleByInviteCode(ctx context.Context, code string) (*circle.Circle, error) {
	query := circleSelect + ` WHERE invite_code = $1`
	return r.scanCircle(r.q(ctx).QueryRowContext(ctx, query, code), "invite code")
}

func (r *PostgresCircleRepository) UpdateCircle(ctx context.Context, c *circle.Circle) error {
	query := `UPDATE circles
               SET name = $1, description = $2, icon_storage_id = $3, cover_storage_id = $4,
                   admin_id = $5, invite_code = $6, timezone = $7, archived_at = $8, updated_at = NOW()
               WHERE id = $9
               RETURNING updated_at`

	err := r.q(ctx).QueryRowContext(ctx, query,
		c.Name, c.Description, c.IconStorageID, c.CoverStorageID,
		c.AdminID, c.InviteCode, c.Timezone, c.ArchivedAt, c.ID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return circle.ErrCircleNotFound
		}
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "circles_invite_code_key") {
			return circle.ErrDuplicateInviteCode
		}
		return fmt.Errorf("error updating circle: %w", err)
	}
	return nil
}

func (r *PostgresCircleRepository) ListActiveCircles(ctx context.Context) ([]*circle.Circle, error) {
	query := circleSelect + ` WHERE archived_at IS NULL ORDER BY id`
	return r.listCircles(ctx, query)
}

func (r *PostgresCircleRepository) ListCirclesByAdmin(ctx context.Context, adminID int64) ([]*circle.Circle, error) {
	query := circleSelect + ` WHERE admin_id = $1 ORDER BY id`
	return r.listCircles(ctx, query, adminID)
}

const circleSelect = `SELECT id, name, description, icon_storage_id, cover_storage_id, admin_id, invite_code, timezone, archived_at, created_at, updated_at
               FROM circles`

func (r *PostgresCircleRepository) scanCircle(row *sql.Row, by string) (*circle.Circle, error) {
	c := &circle.Circle{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.IconStorageID, &c.CoverStorageID,
		&c.AdminID, &c.InviteCode, &c.Timezone, &c.ArchivedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, circle.ErrCircleNotFound
		}
		return nil, fmt.Errorf("error getting circle by %s: %w", by, err)
	}
	return c, nil
}

func (r *PostgresCircleRepository) listCircles(ctx context.Context, query string, args ...interface{}) ([]*circle.Circle, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing circles: %w", err)
	}
	defer rows.Close()

	circles := make([]*circle.Circle, 0)
	for rows.Next() {
		c := &circle.Circle{}
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.IconStorageID, &c.CoverStorageID,
			&c.AdminID, &c.InviteCode, &c.Timezone, &c.ArchivedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning circle: %w", err)
		}
		circles = append(circles, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating circles: %w", err)
	}
	return circles, nil
}

// --- Membership Methods ---

func (r *PostgresCircleRepository) CreateMembership(ctx context.Context, m *circle.Membership) error {
	query := `INSERT INTO memberships (user_id, circle_id, role, joined_at, left_at, blocked, email_unsubscribed)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id`

	err := r.q(ctx).QueryRowContext(ctx, query,
		m.UserID, m.CircleID, m.Role, m.JoinedAt, m.LeftAt, m.Blocked, m.EmailUnsubscribed,
	).Scan(&m.ID)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "memberships_user_id_circle_id_key") {
			return circle.ErrDuplicateMembership
		}
		return fmt.Errorf("error creating membership: %w", err)
	}
	return nil
}

func (r *PostgresCircleRepository) GetMembership(ctx context.Context, userID, circleID int64) (*circle.Membership, error) {
	query := `SELECT id, user_id, circle_id, role, joined_at, left_at, blocked, email_unsubscribed
               FROM memberships WHERE user_id = $1 AND circle_id = $2`
	m := &circle.Membership{}
	err := r.q(ctx).QueryRowContext(ctx, query, userID, circleID).Scan(
		&m.ID, &m.UserID, &m.CircleID, &m.Role, &m.JoinedAt, &m.LeftAt, &m.Blocked, &m.EmailUnsubscribed,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, circle.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("error getting membership: %w", err)
	}
	return m, nil
}

func (r *PostgresCircleRepository) UpdateMembership(ctx context.Context, m *circle.Membership) error {
	query := `UPDATE memberships
               SET role = $1, joined_at = $2, left_at = $3, blocked = $4, email_unsubscribed = $5
               WHERE id = $6`

	res, err := r.q(ctx).ExecContext(ctx, query, m.Role, m.JoinedAt, m.LeftAt, m.Blocked, m.EmailUnsubscribed, m.ID)
	if err != nil {
		return fmt.Errorf("error updating membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated membership rows: %w", err)
	}
	if affected == 0 {
		return circle.ErrMembershipNotFound
	}
	return nil
}

func (r *PostgresCircleRepository) ListMembershipsByCircle(ctx context.Context, circleID int64) ([]*circle.Membership, error) {
	query := `SELECT id, user_id, circle_id, role, joined_at, left_at, blocked, email_unsubscribed
               FROM memberships WHERE circle_id = $1 ORDER BY joined_at, id`
	return r.listMemberships(ctx, query, circleID)
}

func (r *PostgresCircleRepository) ListMembershipsByUser(ctx context.Context, userID int64) ([]*circle.Membership, error) {
	query := `SELECT id, user_id, circle_id, role, joined_at, left_at, blocked, email_unsubscribed
               FROM memberships WHERE user_id = $1 ORDER BY joined_at, id`
	return r.listMemberships(ctx, query, userID)
}

func (r *PostgresCircleRepository) listMemberships(ctx context.Context, query string, args ...interface{}) ([]*circle.Membership, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]*circle.Membership, 0)
	for rows.Next() {
		m := &circle.Membership{}
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.CircleID, &m.Role, &m.JoinedAt, &m.LeftAt, &m.Blocked, &m.EmailUnsubscribed,
		); err != nil {
			return nil, fmt.Errorf("error scanning membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}
	return memberships, nil
}

// --- Prompt Methods ---

func (r *PostgresCircleRepository) CreatePrompt(ctx context.Context, p *circle.Prompt) error {
	query := `INSERT INTO prompts (circle_id, text, sort_order, active)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at`

	err := r.q(ctx).QueryRowContext(ctx, query, p.CircleID, p.Text, p.Order, p.Active).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating prompt: %w", err)
	}
	return nil
}

func (r *PostgresCircleRepository) GetPromptByID(ctx context.Context, id int64) (*circle.Prompt, error) {
	query := `SELECT id, circle_id, text, sort_order, active, created_at
               FROM prompts WHERE id = $1`
	p := &circle.Prompt{}
	err := r.q(ctx).QueryRowContext(ctx, query, id).Scan(&p.ID, &p.CircleID, &p.Text, &p.Order, &p.Active, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, circle.ErrPromptNotFound
		}
		return nil, fmt.Errorf("error getting prompt by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresCircleRepository) UpdatePrompt(ctx context.Context, p *circle.Prompt) error {
	query := `UPDATE prompts SET text = $1, sort_order = $2, active = $3 WHERE id = $4`

	res, err := r.q(ctx).ExecContext(ctx, query, p.Text, p.Order, p.Active, p.ID)
	if err != nil {
		return fmt.Errorf("error updating prompt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated prompt rows: %w", err)
	}
	if affected == 0 {
		return circle.ErrPromptNotFound
	}
	return nil
}

func (r *PostgresCircleRepository) ListPromptsByCircle(ctx context.Context, circleID int64) ([]*circle.Prompt, error) {
	query := `SELECT id, circle_id, text, sort_order, active, created_at
               FROM prompts WHERE circle_id = $1 ORDER BY sort_order, id`

	rows, err := r.q(ctx).QueryContext(ctx, query, circleID)
	if err != nil {
		return nil, fmt.Errorf("error listing prompts: %w", err)
	}
	defer rows.Close()

	prompts := make([]*circle.Prompt, 0)
	for rows.Next() {
		p := &circle.Prompt{}
		if err := rows.Scan(&p.ID, &p.CircleID, &p.Text, &p.Order, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}
	return prompts, nil
}
