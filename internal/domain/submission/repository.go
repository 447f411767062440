package submission

import (
	"context"
	"fmt"
)

// Sentinel errors shared by every Repository implementation.
var (
	ErrSubmissionNotFound  = fmt.Errorf("submission not found")
	ErrResponseNotFound    = fmt.Errorf("response not found")
	ErrMediaNotFound       = fmt.Errorf("media not found")
	ErrDuplicateSubmission = fmt.Errorf("duplicate submission (user, circle, cycle)")
	ErrDuplicateResponse   = fmt.Errorf("duplicate response (submission, prompt)")
)

// Repository defines operations for Submission, Response and Media.
//
// GetSubmission resolves at most one row per (user, circle, cycle) and
// GetResponse at most one per (submission, prompt); the uniqueness is
// enforced by the storage layer.
type Repository interface {
	// Submission methods
	CreateSubmission(ctx context.Context, s *Submission) error
	GetSubmissionByID(ctx context.Context, id int64) (*Submission, error)
	GetSubmission(ctx context.Context, userID, circleID int64, cycleID string) (*Submission, error)
	UpdateSubmission(ctx context.Context, s *Submission) error
	DeleteSubmission(ctx context.Context, id int64) error
	ListUnlockedSubmissions(ctx context.Context) ([]*Submission, error)
	ListSubmissionsByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) ([]*Submission, error)
	ListSubmissionsByUserAndCircle(ctx context.Context, userID, circleID int64) ([]*Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID int64) ([]*Submission, error)

	// Response methods
	CreateResponse(ctx context.Context, r *Response) error
	GetResponseByID(ctx context.Context, id int64) (*Response, error)
	GetResponse(ctx context.Context, submissionID, promptID int64) (*Response, error)
	UpdateResponse(ctx context.Context, r *Response) error
	DeleteResponse(ctx context.Context, id int64) error
	ListResponsesBySubmission(ctx context.Context, submissionID int64) ([]*Response, error)

	// Media methods
	CreateMedia(ctx context.Context, m *Media) error
	GetMediaByID(ctx context.Context, id int64) (*Media, error)
	UpdateMediaOrder(ctx context.Context, id int64, order int) error
	DeleteMedia(ctx context.Context, id int64) error
	ListMediaByResponse(ctx context.Context, responseID int64) ([]*Media, error)
}
