package memory

import (
	"context"
	"sync"
	"time"

	"second_saturday/internal/domain/video"
)

type VideoRepository struct {
	mu     sync.Mutex
	nextID int64
	videos map[int64]video.Video
}

func NewVideoRepository() *VideoRepository {
	return &VideoRepository{nextID: 1, videos: make(map[int64]video.Video)}
}

func (r *VideoRepository) Create(ctx context.Context, v *video.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.videos {
		if existing.UploadID == v.UploadID {
			return video.ErrDuplicateUploadID
		}
	}
	v.ID = r.nextID
	r.nextID++
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.UpdatedAt = v.CreatedAt
	r.videos[v.ID] = *v
	return nil
}

func (r *VideoRepository) GetByUploadID(ctx context.Context, uploadID string) (*video.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.UploadID == uploadID {
			v := v
			return &v, nil
		}
	}
	return nil, video.ErrNotFound
}

func (r *VideoRepository) GetByAssetID(ctx context.Context, assetID string) (*video.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.AssetID.Valid && v.AssetID.String == assetID {
			v := v
			return &v, nil
		}
	}
	return nil, video.ErrNotFound
}

func (r *VideoRepository) Update(ctx context.Context, v *video.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[v.ID]; !ok {
		return video.ErrNotFound
	}
	r.videos[v.ID] = *v
	return nil
}

func (r *VideoRepository) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, v := range r.videos {
		if v.UserID == userID {
			delete(r.videos, id)
			deleted++
		}
	}
	return deleted, nil
}
