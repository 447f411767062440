// internal/app/user_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"

	"second_saturday/internal/domain/circle"
	"second_saturday/internal/domain/newsletter"
	"second_saturday/internal/domain/notify"
	"second_saturday/internal/domain/objectstore"
	"second_saturday/internal/domain/submission"
	"second_saturday/internal/domain/user"
	"second_saturday/internal/domain/video"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUserNotFound maps an identity subject with no account.
	ErrUserNotFound = user.ErrNotFound
	// ErrAccountHasAdminCircles refuses deletion while the user still
	// administers a non-archived circle.
	ErrAccountHasAdminCircles = fmt.Errorf("you must transfer or archive your circles before deleting your account")
)

// UserService maps identity-provider subjects to accounts and manages
// the account lifecycle.
type UserService struct {
	userRepo       user.Repository
	circleRepo     circle.Repository
	submissionRepo submission.Repository
	newsletterRepo newsletter.Repository
	videoRepo      video.Repository
	store          objectstore.Store
	email          notify.EmailSender
	clock          Clock
	logger         *logrus.Logger
}

func NewUserService(
	ur user.Repository,
	cr circle.Repository,
	sr submission.Repository,
	nr newsletter.Repository,
	vr video.Repository,
	store objectstore.Store,
	email notify.EmailSender,
	clock Clock,
	logger *logrus.Logger,
) *UserService {
	return &UserService{
		userRepo:       ur,
		circleRepo:     cr,
		submissionRepo: sr,
		newsletterRepo: nr,
		videoRepo:      vr,
		store:          store,
		email:          email,
		clock:          clock,
		logger:         logger,
	}
}

// Ensure resolves the identity subject to an account, creating one on
// the first sign-in event.
func (s *UserService) Ensure(ctx context.Context, subjectID, email, name, imageURL string) (*user.User, error) {
	existing, err := s.userRepo.GetBySubjectID(ctx, subjectID)
	if err == nil {
		return existing, nil
	}
	if err != user.ErrNotFound {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.clock.Now()
	u := &user.User{
		SubjectID: subjectID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name != "" {
		u.Name = sql.NullString{String: name, Valid: true}
	}
	if imageURL != "" {
		u.ImageURL = sql.NullString{String: imageURL, Valid: true}
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.WithField("user_id", u.ID).Info("User created on first sign-in")
	return u, nil
}

// Sync applies an identity-provider profile update.
func (s *UserService) Sync(ctx context.Context, subjectID, email, name, imageURL string) (*user.User, error) {
	u, err := s.Ensure(ctx, subjectID, email, name, imageURL)
	if err != nil {
		return nil, err
	}
	u.Email = email
	u.Name = sql.NullString{String: name, Valid: name != ""}
	u.ImageURL = sql.NullString{String: imageURL, Valid: imageURL != ""}
	u.UpdatedAt = s.clock.Now()
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to sync user profile: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the user's own edits. Replacing the avatar
// deletes the previous object from storage.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, name, avatarStorageID *string) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if name != nil {
		u.Name = sql.NullString{String: *name, Valid: *name != ""}
	}
	if avatarStorageID != nil {
		if u.AvatarStorageID.Valid {
			if err := s.store.Delete(ctx, u.AvatarStorageID.String); err != nil {
				s.logger.WithField("storage_id", u.AvatarStorageID.String).WithError(err).Warn("Failed to delete previous avatar object")
			}
		}
		url, err := s.store.URL(ctx, *avatarStorageID)
		if err != nil {
			return fmt.Errorf("failed to resolve avatar URL: %w", err)
		}
		u.AvatarStorageID = sql.NullString{String: *avatarStorageID, Valid: true}
		u.ImageURL = sql.NullString{String: url, Valid: true}
	}
	u.UpdatedAt = s.clock.Now()
	if err := s.userRepo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// SetTimezone stores the user's timezone.
func (s *UserService) SetTimezone(ctx context.Context, userID int64, timezone string) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	u.Timezone = sql.NullString{String: timezone, Valid: timezone != ""}
	u.UpdatedAt = s.clock.Now()
	if err := s.userRepo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to set timezone: %w", err)
	}
	return nil
}

// RegisterPushPlayer stores the push dispatch binding for the user.
func (s *UserService) RegisterPushPlayer(ctx context.Context, userID int64, playerID string) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	u.PushPlayerID = sql.NullString{String: playerID, Valid: playerID != ""}
	u.UpdatedAt = s.clock.Now()
	if err := s.userRepo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to register push player: %w", err)
	}
	return nil
}

// Delete removes the account and all of its content. Refused while the
// user still administers a non-archived circle; those obligations must
// be transferred or archived first.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	adminCircles, err := s.circleRepo.ListCirclesByAdmin(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list admin circles: %w", err)
	}
	for _, c := range adminCircles {
		if !c.Archived() {
			return ErrAccountHasAdminCircles
		}
	}

	now := s.clock.Now()
	memberships, err := s.circleRepo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}
	for _, m := range memberships {
		if m.Active() {
			m.LeftAt = sql.NullTime{Time: now, Valid: true}
			if err := s.circleRepo.UpdateMembership(ctx, m); err != nil {
				return fmt.Errorf("failed to leave circle %d: %w", m.CircleID, err)
			}
		}
	}

	subs, err := s.submissionRepo.ListSubmissionsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}
	for _, sub := range subs {
		responses, err := s.submissionRepo.ListResponsesBySubmission(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("failed to list responses: %w", err)
		}
		for _, r := range responses {
			media, err := s.submissionRepo.ListMediaByResponse(ctx, r.ID)
			if err != nil {
				return fmt.Errorf("failed to list media: %w", err)
			}
			for _, m := range media {
				if m.StorageID.Valid {
					if err := s.store.Delete(ctx, m.StorageID.String); err != nil {
						return fmt.Errorf("failed to delete media object: %w", err)
					}
				}
				if err := s.submissionRepo.DeleteMedia(ctx, m.ID); err != nil {
					return fmt.Errorf("failed to delete media record: %w", err)
				}
			}
			if err := s.submissionRepo.DeleteResponse(ctx, r.ID); err != nil {
				return fmt.Errorf("failed to delete response: %w", err)
			}
		}
		if err := s.submissionRepo.DeleteSubmission(ctx, sub.ID); err != nil {
			return fmt.Errorf("failed to delete submission: %w", err)
		}
	}

	if _, err := s.videoRepo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete videos: %w", err)
	}

	if u.AvatarStorageID.Valid {
		if err := s.store.Delete(ctx, u.AvatarStorageID.String); err != nil {
			s.logger.WithField("storage_id", u.AvatarStorageID.String).WithError(err).Warn("Failed to delete avatar object")
		}
	}

	if err := s.newsletterRepo.DeleteReadsByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete read receipts: %w", err)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	// Confirmation email after the state change commits; failure here
	// is external-dependency class and never unwinds the deletion.
	if u.Email != "" {
		if err := s.email.Send(ctx, notify.Email{
			To:      u.Email,
			Subject: "Your account has been deleted",
			HTML:    fmt.Sprintf("<p>Goodbye, %s. Your account and all your content have been removed.</p>", u.DisplayName()),
		}); err != nil {
			s.logger.WithField("user_id", userID).WithError(err).Error("Failed to send account deletion email")
		}
	}

	s.logger.WithField("user_id", userID).Info("Account deleted")
	return nil
}

// DeleteBySubject handles an identity-provider "user deleted" webhook
// event for a user that may or may not exist locally.
func (s *UserService) DeleteBySubject(ctx context.Context, subjectID string) error {
	u, err := s.userRepo.GetBySubjectID(ctx, subjectID)
	if err != nil {
		if err == user.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return s.Delete(ctx, u.ID)
}
