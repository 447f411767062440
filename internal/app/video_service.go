// internal/app/video_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"

	"second_saturday/internal/domain/video"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrUnknownEventKind rejects webhook payloads outside the tagged
// union.
var ErrUnknownEventKind = fmt.Errorf("unknown transcoding event kind")

// VideoService tracks uploads through the external transcoding
// pipeline and applies its webhook events.
type VideoService struct {
	videoRepo video.Repository
	clock     Clock
	logger    *logrus.Logger
}

func NewVideoService(vr video.Repository, clock Clock, logger *logrus.Logger) *VideoService {
	return &VideoService{videoRepo: vr, clock: clock, logger: logger}
}

// Track registers a new upload and returns its record. The upload id
// is handed to the client for the pre-authorized upload.
func (s *VideoService) Track(ctx context.Context, userID int64, circleID int64, title string) (*video.Video, error) {
	now := s.clock.Now()
	v := &video.Video{
		UploadID:  uuid.NewString(),
		UserID:    userID,
		Status:    video.StatusUploading,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if circleID != 0 {
		v.CircleID = sql.NullInt64{Int64: circleID, Valid: true}
	}
	if title != "" {
		v.Title = sql.NullString{String: title, Valid: true}
	}
	if err := s.videoRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create video record: %w", err)
	}
	return v, nil
}

// HandleEvent applies one validated transcoding webhook event. Records
// missing on our side are logged, not errors: stale webhooks retry and
// must not poison the queue.
func (s *VideoService) HandleEvent(ctx context.Context, ev video.Event) error {
	switch ev.Kind {
	case video.EventAssetCreated:
		v, err := s.videoRepo.GetByUploadID(ctx, ev.UploadID)
		if err != nil {
			if err == video.ErrNotFound {
				s.logger.WithField("upload_id", ev.UploadID).Warn("Asset-created event for unknown upload")
				return nil
			}
			return fmt.Errorf("failed to get video by upload id: %w", err)
		}
		v.AssetID = sql.NullString{String: ev.AssetID, Valid: true}
		v.Status = video.StatusProcessing
		v.UpdatedAt = s.clock.Now()
		return s.update(ctx, v)

	case video.EventAssetReady:
		v, err := s.byAsset(ctx, ev.AssetID)
		if err != nil || v == nil {
			return err
		}
		v.PlaybackID = sql.NullString{String: ev.PlaybackID, Valid: true}
		if ev.Duration > 0 {
			v.Duration = sql.NullFloat64{Float64: ev.Duration, Valid: true}
		}
		if ev.AspectRatio != "" {
			v.AspectRatio = sql.NullString{String: ev.AspectRatio, Valid: true}
		}
		v.Status = video.StatusReady
		v.UpdatedAt = s.clock.Now()
		return s.update(ctx, v)

	case video.EventAssetErrored:
		v, err := s.byAsset(ctx, ev.AssetID)
		if err != nil || v == nil {
			return err
		}
		v.Status = video.StatusError
		v.Error = sql.NullString{String: ev.Message, Valid: ev.Message != ""}
		v.UpdatedAt = s.clock.Now()
		return s.update(ctx, v)

	default:
		return ErrUnknownEventKind
	}
}

func (s *VideoService) byAsset(ctx context.Context, assetID string) (*video.Video, error) {
	v, err := s.videoRepo.GetByAssetID(ctx, assetID)
	if err != nil {
		if err == video.ErrNotFound {
			s.logger.WithField("asset_id", assetID).Warn("Event for unknown asset")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get video by asset id: %w", err)
	}
	return v, nil
}

func (s *VideoService) update(ctx context.Context, v *video.Video) error {
	if err := s.videoRepo.Update(ctx, v); err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	return nil
}
