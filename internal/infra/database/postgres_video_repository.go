// internal/infra/database/postgres_video_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"second_saturday/internal/domain/video"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresVideoRepository struct {
	db *sql.DB
}

func NewPostgresVideoRepository(db *sql.DB) *PostgresVideoRepository {
	return &PostgresVideoRepository{db: db}
}

const videoSelect = `SELECT id, upload_id, asset_id, playback_id, user_id, circle_id, title, duration, aspect_ratio, status, error, created_at, updated_at
               FROM videos`

func (r *PostgresVideoRepository) Create(ctx context.Context, v *video.Video) error {
	query := `INSERT INTO videos (upload_id, asset_id, playback_id, user_id, circle_id, title, duration, aspect_ratio, status, error)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		v.UploadID, v.AssetID, v.PlaybackID, v.UserID, v.CircleID,
		v.Title, v.Duration, v.AspectRatio, v.Status, v.Error,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "videos_upload_id_key") {
			return video.ErrDuplicateUploadID
		}
		return fmt.Errorf("error creating video: %w", err)
	}
	return nil
}

func (r *PostgresVideoRepository) GetByUploadID(ctx context.Context, uploadID string) (*video.Video, error) {
	query := videoSelect + ` WHERE upload_id = $1`
	return r.scanVideo(r.db.QueryRowContext(ctx, query, uploadID), "upload ID")
}

func (r *PostgresVideoRepository) GetByAssetID(ctx context.Context, assetID string) (*video.Video, error) {
	query := videoSelect + ` WHERE asset_id = $1`
	return r.scanVideo(r.db.QueryRowContext(ctx, query, assetID), "asset ID")
}

func (r *PostgresVideoRepository) Update(ctx context.Context, v *video.Video) error {
	query := `UPDATE videos
               SET asset_id = $1, playback_id = $2, circle_id = $3, title = $4,
                   duration = $5, aspect_ratio = $6, status = $7, error = $8, updated_at = NOW()
               WHERE id = $9
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		v.AssetID, v.PlaybackID, v.CircleID, v.Title,
		v.Duration, v.AspectRatio, v.Status, v.Error, v.ID,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return video.ErrNotFound
		}
		return fmt.Errorf("error updating video: %w", err)
	}
	return nil
}

func (r *PostgresVideoRepository) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting videos by user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error checking deleted video rows: %w", err)
	}
	return int(affected), nil
}

func (r *PostgresVideoRepository) scanVideo(row *sql.Row, by string) (*video.Video, error) {
	v := &video.Video{}
	err := row.Scan(
		&v.ID, &v.UploadID, &v.AssetID, &v.PlaybackID, &v.UserID, &v.CircleID,
		&v.Title, &v.Duration, &v.AspectRatio, &v.Status, &v.Error, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, video.ErrNotFound
		}
		return nil, fmt.Errorf("error getting video by %s: %w", by, err)
	}
	return v, nil
}
