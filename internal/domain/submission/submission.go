// internal/domain/submission/submission.go
package submission

import (
	"database/sql"
	"time"
)

// Submission is a member's answer set for one (circle, cycle). At most
// one exists per (user, circle, cycle). Once LockedAt is set the
// submission is immutable: no further Response or Media writes are
// accepted.
type Submission struct {
	ID          int64
	CircleID    int64
	UserID      int64
	CycleID     string // YYYY-MM
	SubmittedAt sql.NullTime
	LockedAt    sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *Submission) Locked() bool {
	return s.LockedAt.Valid
}

// Submitted reports whether the member completed the submission.
// A locked-but-never-submitted row (deadline sweep) does not count.
func (s *Submission) Submitted() bool {
	return s.SubmittedAt.Valid
}

// Status of a member's submission in a cycle.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

// Response is the answer to one prompt within a submission. At most
// one exists per (submission, prompt).
type Response struct {
	ID           int64
	SubmissionID int64
	PromptID     int64
	Text         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const MaxResponseText = 500

// RedactedText replaces a blocked member's response text.
const RedactedText = "[removed]"

// MediaType distinguishes images from videos.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Media is an attachment on a response, ordered 0..2. Order stays
// contiguous and zero-based within a response at all times.
type Media struct {
	ID           int64
	ResponseID   int64
	StorageID    sql.NullString
	AssetID      sql.NullString // transcoding asset reference for videos
	Type         MediaType
	ThumbnailURL sql.NullString
	Order        int
	UploadedAt   time.Time
	CreatedAt    time.Time
}

const MaxMediaPerResponse = 3
