package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"second_saturday/internal/domain/video"
)

func TestTrackStartsUpload(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	u := env.addUser(t, "sub-u", "u@example.com", "Uma", "")
	circleID := env.newCircle(t, u.ID)

	v, err := env.videos.Track(ctx, u.ID, circleID, "june clip")
	require.NoError(t, err)
	assert.NotEmpty(t, v.UploadID)
	assert.Equal(t, video.StatusUploading, v.Status)
	assert.Equal(t, circleID, v.CircleID.Int64)
	assert.Equal(t, "june clip", v.Title.String)
}

func TestHandleEventDrivesStatusTransitions(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	u := env.addUser(t, "sub-u", "u@example.com", "Uma", "")
	v, err := env.videos.Track(ctx, u.ID, 0, "")
	require.NoError(t, err)

	err = env.videos.HandleEvent(ctx, video.Event{
		Kind:     video.EventAssetCreated,
		UploadID: v.UploadID,
		AssetID:  "asset-1",
	})
	require.NoError(t, err)
	got, err := env.videoRepo.GetByUploadID(ctx, v.UploadID)
	require.NoError(t, err)
	assert.Equal(t, video.StatusProcessing, got.Status)
	assert.Equal(t, "asset-1", got.AssetID.String)

	err = env.videos.HandleEvent(ctx, video.Event{
		Kind:        video.EventAssetReady,
		AssetID:     "asset-1",
		PlaybackID:  "play-1",
		Duration:    12.5,
		AspectRatio: "16:9",
	})
	require.NoError(t, err)
	got, err = env.videoRepo.GetByAssetID(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, video.StatusReady, got.Status)
	assert.Equal(t, "play-1", got.PlaybackID.String)
	assert.Equal(t, 12.5, got.Duration.Float64)
	assert.Equal(t, "16:9", got.AspectRatio.String)
}

func TestHandleEventRecordsTranscodeFailure(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()
	u := env.addUser(t, "sub-u", "u@example.com", "Uma", "")
	v, err := env.videos.Track(ctx, u.ID, 0, "")
	require.NoError(t, err)
	require.NoError(t, env.videos.HandleEvent(ctx, video.Event{
		Kind: video.EventAssetCreated, UploadID: v.UploadID, AssetID: "asset-bad",
	}))

	require.NoError(t, env.videos.HandleEvent(ctx, video.Event{
		Kind: video.EventAssetErrored, AssetID: "asset-bad", Message: "input file corrupt",
	}))
	got, err := env.videoRepo.GetByAssetID(ctx, "asset-bad")
	require.NoError(t, err)
	assert.Equal(t, video.StatusError, got.Status)
	assert.Equal(t, "input file corrupt", got.Error.String)
}

func TestHandleEventToleratesUnknownSubjects(t *testing.T) {
	env := newTestEnv(baseTime)
	ctx := context.Background()

	// Events for uploads or assets this service never tracked are
	// acknowledged, not retried forever by the provider.
	assert.NoError(t, env.videos.HandleEvent(ctx, video.Event{
		Kind: video.EventAssetCreated, UploadID: "never-seen", AssetID: "asset-x",
	}))
	assert.NoError(t, env.videos.HandleEvent(ctx, video.Event{
		Kind: video.EventAssetReady, AssetID: "never-seen",
	}))

	assert.ErrorIs(t, env.videos.HandleEvent(ctx, video.Event{Kind: "bogus"}), ErrUnknownEventKind)
}
