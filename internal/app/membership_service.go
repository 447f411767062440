// internal/app/membership_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"second_saturday/internal/domain/circle"
	"second_saturday/internal/domain/objectstore"
	"second_saturday/internal/domain/submission"

	"github.com/sirupsen/logrus"
)

// Membership lifecycle errors.
var (
	ErrInvalidInviteCode     = fmt.Errorf("invalid invite code")
	ErrMemberBlocked         = fmt.Errorf("this member has been blocked from the circle")
	ErrAdminCannotLeave      = fmt.Errorf("admin must transfer the role before leaving")
	ErrTransferToSelf        = fmt.Errorf("cannot transfer admin role to yourself")
	ErrRemoveSelf            = fmt.Errorf("cannot remove yourself from the circle")
	ErrTargetNotActiveMember = fmt.Errorf("target user is not an active member of this circle")
)

// JoinResult reports the outcome of an invite acceptance.
type JoinResult struct {
	CircleID      int64
	AlreadyMember bool
	Rejoined      bool
}

// MembershipService manages join/leave/remove/block/rejoin transitions
// and the redaction cascade over a blocked member's contributions.
type MembershipService struct {
	circleRepo     circle.Repository
	submissionRepo submission.Repository
	store          objectstore.Store
	clock          Clock
	logger         *logrus.Logger
}

func NewMembershipService(
	cr circle.Repository,
	sr submission.Repository,
	store objectstore.Store,
	clock Clock,
	logger *logrus.Logger,
) *MembershipService {
	return &MembershipService{
		circleRepo:     cr,
		submissionRepo: sr,
		store:          store,
		clock:          clock,
		logger:         logger,
	}
}

// Join accepts an invite code. A blocked historical membership refuses
// the join; a non-blocked historical membership is reactivated so prior
// contributions stay attached to the same user without duplication.
func (s *MembershipService) Join(ctx context.Context, userID int64, inviteCode string) (*JoinResult, error) {
	c, err := s.circleRepo.GetCircleByInviteCode(ctx, inviteCode)
	if err != nil {
		if err == circle.ErrCircleNotFound {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}
	if c.Archived() {
		return nil, ErrCircleArchived
	}

	existing, err := s.circleRepo.GetMembership(ctx, userID, c.ID)
	if err != nil && err != circle.ErrMembershipNotFound {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}

	if existing != nil {
		if existing.Blocked {
			return nil, ErrMemberBlocked
		}
		if existing.Active() {
			return &JoinResult{CircleID: c.ID, AlreadyMember: true}, nil
		}
		existing.LeftAt = sql.NullTime{}
		existing.JoinedAt = s.clock.Now()
		existing.Role = circle.RoleMember
		if err := s.circleRepo.UpdateMembership(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to reactivate membership: %w", err)
		}
		s.logger.WithFields(logrus.Fields{"user_id": userID, "circle_id": c.ID}).Info("Member rejoined circle")
		return &JoinResult{CircleID: c.ID, Rejoined: true}, nil
	}

	m := &circle.Membership{
		UserID:   userID,
		CircleID: c.ID,
		Role:     circle.RoleMember,
		JoinedAt: s.clock.Now(),
	}
	if err := s.circleRepo.CreateMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "circle_id": c.ID}).Info("Member joined circle")
	return &JoinResult{CircleID: c.ID}, nil
}

// Leave ends the caller's membership. The admin cannot leave directly;
// the role must be transferred first.
func (s *MembershipService) Leave(ctx context.Context, userID, circleID int64) error {
	m, err := requireMembership(ctx, s.circleRepo, userID, circleID)
	if err != nil {
		return err
	}
	if m.Role == circle.RoleAdmin {
		return ErrAdminCannotLeave
	}
	m.LeftAt = sql.NullTime{Time: s.clock.Now(), Valid: true}
	if err := s.circleRepo.UpdateMembership(ctx, m); err != nil {
		return fmt.Errorf("failed to leave circle: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "circle_id": circleID}).Info("Member left circle")
	return nil
}

// TransferAdmin atomically flips both roles and the circle's admin
// reference. The target must be another active member.
func (s *MembershipService) TransferAdmin(ctx context.Context, callerID, circleID, newAdminID int64) error {
	caller, err := requireAdmin(ctx, s.circleRepo, callerID, circleID)
	if err != nil {
		return err
	}
	if newAdminID == callerID {
		return ErrTransferToSelf
	}

	target, err := s.circleRepo.GetMembership(ctx, newAdminID, circleID)
	if err != nil {
		if err == circle.ErrMembershipNotFound {
			return ErrTargetNotActiveMember
		}
		return fmt.Errorf("failed to get target membership: %w", err)
	}
	if !target.Eligible() {
		return ErrTargetNotActiveMember
	}

	c, err := s.circleRepo.GetCircleByID(ctx, circleID)
	if err != nil {
		return fmt.Errorf("failed to get circle: %w", err)
	}

	caller.Role = circle.RoleMember
	target.Role = circle.RoleAdmin
	c.AdminID = newAdminID
	c.UpdatedAt = s.clock.Now()

	// Both role flips and the circle's admin reference move together.
	err = s.circleRepo.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.circleRepo.UpdateMembership(ctx, target); err != nil {
			return fmt.Errorf("failed to promote new admin: %w", err)
		}
		if err := s.circleRepo.UpdateMembership(ctx, caller); err != nil {
			return fmt.Errorf("failed to demote previous admin: %w", err)
		}
		if err := s.circleRepo.UpdateCircle(ctx, c); err != nil {
			return fmt.Errorf("failed to update circle admin reference: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"circle_id":    circleID,
		"old_admin_id": callerID,
		"new_admin_id": newAdminID,
	}).Info("Admin role transferred")
	return nil
}

// RemoveMember removes target from the circle. With keepContributions
// the member is soft-removed (may rejoin, history stays visible);
// without it the member is blocked irreversibly and every prior
// contribution is redacted.
func (s *MembershipService) RemoveMember(ctx context.Context, callerID, circleID, targetID int64, keepContributions bool) error {
	if _, err := requireAdmin(ctx, s.circleRepo, callerID, circleID); err != nil {
		return err
	}
	if targetID == callerID {
		return ErrRemoveSelf
	}

	target, err := s.circleRepo.GetMembership(ctx, targetID, circleID)
	if err != nil {
		if err == circle.ErrMembershipNotFound {
			return ErrTargetNotActiveMember
		}
		return fmt.Errorf("failed to get target membership: %w", err)
	}
	if !target.Active() {
		return ErrTargetNotActiveMember
	}

	now := s.clock.Now()
	target.LeftAt = sql.NullTime{Time: now, Valid: true}
	if !keepContributions {
		target.Blocked = true
		// Redact before persisting the membership change so a cascade
		// failure leaves the member untouched rather than half-removed.
		if err := s.redactContributions(ctx, targetID, circleID, now); err != nil {
			return err
		}
	}
	if err := s.circleRepo.UpdateMembership(ctx, target); err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"circle_id": circleID,
		"target_id": targetID,
		"blocked":   !keepContributions,
	}).Info("Member removed from circle")
	return nil
}

// redactContributions is the cascade over every submission the user
// made in the circle, all cycles: response text is overwritten with the
// redaction marker and every media item is deleted from storage and
// from the record. Storage deletes run first, before any record
// mutation, so a storage failure aborts the whole cascade with the
// records untouched. Storage is the only step that can fail outside
// our control; once it has succeeded the record changes follow as one
// block.
func (s *MembershipService) redactContributions(ctx context.Context, userID, circleID int64, now time.Time) error {
	subs, err := s.submissionRepo.ListSubmissionsByUserAndCircle(ctx, userID, circleID)
	if err != nil {
		return fmt.Errorf("failed to list submissions for redaction: %w", err)
	}

	var responses []*submission.Response
	var mediaIDs []int64
	var storageRefs []string
	for _, sub := range subs {
		subResponses, err := s.submissionRepo.ListResponsesBySubmission(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("failed to list responses for redaction: %w", err)
		}
		for _, r := range subResponses {
			media, err := s.submissionRepo.ListMediaByResponse(ctx, r.ID)
			if err != nil {
				return fmt.Errorf("failed to list media for redaction: %w", err)
			}
			for _, m := range media {
				if m.StorageID.Valid {
					storageRefs = append(storageRefs, m.StorageID.String)
				}
				mediaIDs = append(mediaIDs, m.ID)
			}
			responses = append(responses, r)
		}
	}

	for _, ref := range storageRefs {
		if err := s.store.Delete(ctx, ref); err != nil {
			return fmt.Errorf("failed to delete media object %s: %w", ref, err)
		}
	}

	for _, id := range mediaIDs {
		if err := s.submissionRepo.DeleteMedia(ctx, id); err != nil {
			return fmt.Errorf("failed to delete media record: %w", err)
		}
	}
	for _, r := range responses {
		r.Text = submission.RedactedText
		r.UpdatedAt = now
		if err := s.submissionRepo.UpdateResponse(ctx, r); err != nil {
			return fmt.Errorf("failed to redact response: %w", err)
		}
	}
	return nil
}

// SetEmailSubscription toggles newsletter email delivery for the
// caller's membership.
func (s *MembershipService) SetEmailSubscription(ctx context.Context, userID, circleID int64, subscribed bool) error {
	m, err := requireMembership(ctx, s.circleRepo, userID, circleID)
	if err != nil {
		return err
	}
	m.EmailUnsubscribed = !subscribed
	if err := s.circleRepo.UpdateMembership(ctx, m); err != nil {
		return fmt.Errorf("failed to update email subscription: %w", err)
	}
	return nil
}
