package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"second_saturday/internal/domain/user"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (subject_id, email, name, image_url, avatar_storage_id, timezone, push_player_id)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.SubjectID, u.Email, u.Name, u.ImageURL, u.AvatarStorageID, u.Timezone, u.PushPlayerID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "users_subject_id_key") {
			return user.ErrDuplicateSubjectID
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT id, subject_id, email, name, image_url, avatar_storage_id, timezone, push_player_id, created_at, updated_at
               FROM users WHERE id = $1`
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.SubjectID, &u.Email, &u.Name, &u.ImageURL, &u.AvatarStorageID, &u.Timezone, &u.PushPlayerID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetBySubjectID(ctx context.Context, subjectID string) (*user.User, error) {
	query := `SELECT id, subject_id, email, name, image_url, avatar_storage_id, timezone, push_player_id, created_at, updated_at
               FROM users WHERE subject_id = $1`
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&u.ID, &u.SubjectID, &u.Email, &u.Name, &u.ImageURL, &u.AvatarStorageID, &u.Timezone, &u.PushPlayerID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user by subject ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, u *user.User) error {
	query := `UPDATE users
               SET email = $1, name = $2, image_url = $3, avatar_storage_id = $4, timezone = $5, push_player_id = $6, updated_at = NOW()
               WHERE id = $7
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.Email, u.Name, u.ImageURL, u.AvatarStorageID, u.Timezone, u.PushPlayerID, u.ID,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.ErrNotFound
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted user rows: %w", err)
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}
