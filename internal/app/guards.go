// internal/app/guards.go
package app

import (
	"context"
	"fmt"

	"second_saturday/internal/domain/circle"
)

// Authorization errors shared across services. They are returned
// before any read of sensitive data beyond the check itself.
var (
	ErrNotMember = fmt.Errorf("not a member of this circle")
	ErrNotAdmin  = fmt.Errorf("admin access required")
)

// requireMembership resolves the caller's active membership or fails
// with ErrNotMember. A left membership does not qualify.
func requireMembership(ctx context.Context, repo circle.Repository, userID, circleID int64) (*circle.Membership, error) {
	m, err := repo.GetMembership(ctx, userID, circleID)
	if err != nil {
		if err == circle.ErrMembershipNotFound {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if !m.Active() {
		return nil, ErrNotMember
	}
	return m, nil
}

// requireAdmin resolves the caller's active admin membership or fails.
func requireAdmin(ctx context.Context, repo circle.Repository, userID, circleID int64) (*circle.Membership, error) {
	m, err := requireMembership(ctx, repo, userID, circleID)
	if err != nil {
		return nil, err
	}
	if m.Role != circle.RoleAdmin {
		return nil, ErrNotAdmin
	}
	return m, nil
}
