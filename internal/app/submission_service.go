// internal/app/submission_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"second_saturday/internal/domain/circle"
	"second_saturday/internal/domain/cycle"
	"second_saturday/internal/domain/objectstore"
	"second_saturday/internal/domain/submission"

	"github.com/sirupsen/logrus"
)

// Submission lifecycle errors.
var (
	ErrSubmissionExists   = fmt.Errorf("only one submission per user per circle per cycle allowed")
	ErrSubmissionLocked   = fmt.Errorf("cannot modify a locked submission")
	ErrAlreadyLocked      = fmt.Errorf("submission is already locked")
	ErrNotSubmissionOwner = fmt.Errorf("not authorized to modify this submission")
	ErrResponseTooLong    = fmt.Errorf("response text must be 500 characters or less")
	ErrMaxMediaReached    = fmt.Errorf("response can have up to 3 media items")
)

// SubmissionService manages the per-(user, circle, cycle) state
// machine: NotStarted -> InProgress -> Submitted(locked).
type SubmissionService struct {
	circleRepo     circle.Repository
	submissionRepo submission.Repository
	store          objectstore.Store
	clock          Clock
	logger         *logrus.Logger
}

func NewSubmissionService(
	cr circle.Repository,
	sr submission.Repository,
	store objectstore.Store,
	clock Clock,
	logger *logrus.Logger,
) *SubmissionService {
	return &SubmissionService{
		circleRepo:     cr,
		submissionRepo: sr,
		store:          store,
		clock:          clock,
		logger:         logger,
	}
}

// Create opens a submission for the caller in (circle, cycle). Fails if
// one already exists for the triple.
func (s *SubmissionService) Create(ctx context.Context, userID, circleID int64, cycleID string) (*submission.Submission, error) {
	if _, err := requireMembership(ctx, s.circleRepo, userID, circleID); err != nil {
		return nil, err
	}
	if _, _, err := cycle.Parse(cycleID); err != nil {
		return nil, err
	}

	existing, err := s.submissionRepo.GetSubmission(ctx, userID, circleID, cycleID)
	if err != nil && err != submission.ErrSubmissionNotFound {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if existing != nil {
		return nil, ErrSubmissionExists
	}

	now := s.clock.Now()
	sub := &submission.Submission{
		CircleID:  circleID,
		UserID:    userID,
		CycleID:   cycleID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.submissionRepo.CreateSubmission(ctx, sub); err != nil {
		if err == submission.ErrDuplicateSubmission {
			return nil, ErrSubmissionExists
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return sub, nil
}

// UpsertResponse creates or overwrites the single response for a prompt
// within the caller's unlocked submission.
func (s *SubmissionService) UpsertResponse(ctx context.Context, userID, submissionID, promptID int64, text string) (*submission.Response, error) {
	// Character count, not bytes: multibyte text is not shortchanged.
	if utf8.RuneCountInString(text) > submission.MaxResponseText {
		return nil, ErrResponseTooLong
	}

	sub, err := s.ownedUnlockedSubmission(ctx, userID, submissionID)
	if err != nil {
		return nil, err
	}

	prompt, err := s.circleRepo.GetPromptByID(ctx, promptID)
	if err != nil {
		if err == circle.ErrPromptNotFound {
			return nil, circle.ErrPromptNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	if prompt.CircleID != sub.CircleID {
		return nil, ErrPromptWrongCircle
	}

	now := s.clock.Now()
	existing, err := s.submissionRepo.GetResponse(ctx, submissionID, promptID)
	if err != nil && err != submission.ErrResponseNotFound {
		return nil, fmt.Errorf("failed to check existing response: %w", err)
	}

	var resp *submission.Response
	if existing != nil {
		existing.Text = text
		existing.UpdatedAt = now
		if err := s.submissionRepo.UpdateResponse(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update response: %w", err)
		}
		resp = existing
	} else {
		resp = &submission.Response{
			SubmissionID: submissionID,
			PromptID:     promptID,
			Text:         text,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.submissionRepo.CreateResponse(ctx, resp); err != nil {
			return nil, fmt.Errorf("failed to create response: %w", err)
		}
	}

	sub.UpdatedAt = now
	if err := s.submissionRepo.UpdateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to touch submission: %w", err)
	}
	return resp, nil
}

// SaveDraft is the autosave entry point: the first write for a cycle
// transparently creates the submission before writing the response, so
// create-if-absent-then-write is one effective operation for the
// caller.
func (s *SubmissionService) SaveDraft(ctx context.Context, userID, circleID int64, cycleID string, promptID int64, text string) (*submission.Response, error) {
	sub, err := s.submissionRepo.GetSubmission(ctx, userID, circleID, cycleID)
	if err != nil {
		if err != submission.ErrSubmissionNotFound {
			return nil, fmt.Errorf("failed to get submission: %w", err)
		}
		sub, err = s.Create(ctx, userID, circleID, cycleID)
		if err != nil {
			return nil, err
		}
	}
	return s.UpsertResponse(ctx, userID, sub.ID, promptID, text)
}

// Lock finalizes the caller's submission: sets LockedAt and, if unset,
// SubmittedAt. Irreversible.
func (s *SubmissionService) Lock(ctx context.Context, userID, submissionID int64) error {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}
	if sub.UserID != userID {
		return ErrNotSubmissionOwner
	}
	if sub.Locked() {
		return ErrAlreadyLocked
	}

	now := s.clock.Now()
	sub.LockedAt = sql.NullTime{Time: now, Valid: true}
	if !sub.SubmittedAt.Valid {
		sub.SubmittedAt = sql.NullTime{Time: now, Valid: true}
	}
	sub.UpdatedAt = now
	if err := s.submissionRepo.UpdateSubmission(ctx, sub); err != nil {
		return fmt.Errorf("failed to lock submission: %w", err)
	}
	s.logger.WithField("submission_id", submissionID).Info("Submission locked by owner")
	return nil
}

// AddMedia attaches media to a response, capped at three items; order
// is assigned as the next free slot.
func (s *SubmissionService) AddMedia(ctx context.Context, userID, responseID int64, mediaType submission.MediaType, storageID, assetID, thumbnailURL string) (*submission.Media, error) {
	resp, err := s.submissionRepo.GetResponseByID(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	if _, err := s.ownedUnlockedSubmission(ctx, userID, resp.SubmissionID); err != nil {
		return nil, err
	}

	existing, err := s.submissionRepo.ListMediaByResponse(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	if len(existing) >= submission.MaxMediaPerResponse {
		return nil, ErrMaxMediaReached
	}

	now := s.clock.Now()
	m := &submission.Media{
		ResponseID: responseID,
		Type:       mediaType,
		Order:      len(existing),
		UploadedAt: now,
		CreatedAt:  now,
	}
	if storageID != "" {
		m.StorageID = sql.NullString{String: storageID, Valid: true}
	}
	if assetID != "" {
		m.AssetID = sql.NullString{String: assetID, Valid: true}
	}
	if thumbnailURL != "" {
		m.ThumbnailURL = sql.NullString{String: thumbnailURL, Valid: true}
	}
	if err := s.submissionRepo.CreateMedia(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create media: %w", err)
	}
	return m, nil
}

// RemoveMedia deletes one media item and re-packs the remaining order
// values so they stay contiguous and zero-based.
func (s *SubmissionService) RemoveMedia(ctx context.Context, userID, mediaID int64) error {
	m, err := s.submissionRepo.GetMediaByID(ctx, mediaID)
	if err != nil {
		return fmt.Errorf("failed to get media: %w", err)
	}
	resp, err := s.submissionRepo.GetResponseByID(ctx, m.ResponseID)
	if err != nil {
		return fmt.Errorf("failed to get response: %w", err)
	}
	if _, err := s.ownedUnlockedSubmission(ctx, userID, resp.SubmissionID); err != nil {
		return err
	}

	if err := s.submissionRepo.DeleteMedia(ctx, mediaID); err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	// Storage cleanup is best-effort; a transient failure must not fail
	// the removal.
	if m.StorageID.Valid {
		if err := s.store.Delete(ctx, m.StorageID.String); err != nil {
			s.logger.WithField("storage_id", m.StorageID.String).WithError(err).Warn("Failed to delete media object from storage")
		}
	}

	remaining, err := s.submissionRepo.ListMediaByResponse(ctx, m.ResponseID)
	if err != nil {
		return fmt.Errorf("failed to list remaining media: %w", err)
	}
	for i, item := range remaining {
		if item.Order != i {
			if err := s.submissionRepo.UpdateMediaOrder(ctx, item.ID, i); err != nil {
				return fmt.Errorf("failed to re-pack media order: %w", err)
			}
		}
	}
	return nil
}

// StatusFor reports the caller's state for (circle, cycle). A user who
// never created a submission has no row and is NotStarted, never
// locked.
func (s *SubmissionService) StatusFor(ctx context.Context, userID, circleID int64, cycleID string) (submission.Status, error) {
	sub, err := s.submissionRepo.GetSubmission(ctx, userID, circleID, cycleID)
	if err != nil {
		if err == submission.ErrSubmissionNotFound {
			return submission.StatusNotStarted, nil
		}
		return "", fmt.Errorf("failed to get submission: %w", err)
	}
	if sub.Locked() {
		return submission.StatusSubmitted, nil
	}
	return submission.StatusInProgress, nil
}

// LockPastDeadline is the deadline sweep: server-authoritative, scans
// all unlocked submissions, recomputes each one's deadline from its
// cycle id and locks those past it. SubmittedAt stays unset for
// submissions the user never explicitly submitted. Each lock is its own
// unit of work; one failure does not abort the scan.
func (s *SubmissionService) LockPastDeadline(ctx context.Context, now time.Time) (int, error) {
	unlocked, err := s.submissionRepo.ListUnlockedSubmissions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unlocked submissions: %w", err)
	}

	locked := 0
	for _, sub := range unlocked {
		deadline, err := cycle.Deadline(sub.CycleID)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"submission_id": sub.ID,
				"cycle_id":      sub.CycleID,
			}).WithError(err).Error("Skipping submission with unparseable cycle id")
			continue
		}
		if now.Before(deadline) {
			continue
		}
		sub.LockedAt = sql.NullTime{Time: now, Valid: true}
		sub.UpdatedAt = now
		if err := s.submissionRepo.UpdateSubmission(ctx, sub); err != nil {
			s.logger.WithField("submission_id", sub.ID).WithError(err).Error("Failed to lock submission at deadline")
			continue
		}
		locked++
	}
	if locked > 0 {
		s.logger.WithField("locked_count", locked).Info("Deadline sweep locked submissions")
	}
	return locked, nil
}

func (s *SubmissionService) ownedUnlockedSubmission(ctx context.Context, userID, submissionID int64) (*submission.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if sub.UserID != userID {
		return nil, ErrNotSubmissionOwner
	}
	if sub.Locked() {
		return nil, ErrSubmissionLocked
	}
	return sub, nil
}

// nonSubmitters returns the user ids of eligible (active, non-blocked)
// members without a completed submission for the cycle. In-progress
// drafts do not count as submitted.
func nonSubmitters(members []*circle.Membership, subs []*submission.Submission, cycleID string) []int64 {
	submitted := make(map[int64]bool, len(subs))
	for _, sub := range subs {
		if sub.CycleID == cycleID && sub.Submitted() {
			submitted[sub.UserID] = true
		}
	}
	var out []int64
	for _, m := range members {
		if m.Eligible() && !submitted[m.UserID] {
			out = append(out, m.UserID)
		}
	}
	return out
}
