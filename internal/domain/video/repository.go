package video

import (
	"context"
	"fmt"
)

// Sentinel errors shared by every Repository implementation.
var (
	ErrNotFound          = fmt.Errorf("video not found")
	ErrDuplicateUploadID = fmt.Errorf("video with this upload id already exists")
)

// Repository defines the operations for persisting Video records.
type Repository interface {
	Create(ctx context.Context, v *Video) error
	GetByUploadID(ctx context.Context, uploadID string) (*Video, error)
	GetByAssetID(ctx context.Context, assetID string) (*Video, error)
	Update(ctx context.Context, v *Video) error
	DeleteByUser(ctx context.Context, userID int64) (int, error)
}
