// internal/domain/video/video.go
package video

import (
	"database/sql"
	"time"
)

// Video tracks one upload through the external transcoding pipeline.
type Video struct {
	ID          int64
	UploadID    string // unique, assigned at upload start
	AssetID     sql.NullString
	PlaybackID  sql.NullString
	UserID      int64
	CircleID    sql.NullInt64
	Title       sql.NullString
	Duration    sql.NullFloat64
	AspectRatio sql.NullString
	Status      Status
	Error       sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// EventKind tags transcoding webhook events.
type EventKind string

const (
	EventAssetCreated EventKind = "created"
	EventAssetReady   EventKind = "ready"
	EventAssetErrored EventKind = "errored"
)

// Event is the tagged union of the three transcoding webhook payload
// shapes, validated once at the boundary.
type Event struct {
	Kind        EventKind
	UploadID    string  // created
	AssetID     string  // all kinds
	PlaybackID  string  // ready
	Duration    float64 // ready
	AspectRatio string  // ready
	Message     string  // errored
}
