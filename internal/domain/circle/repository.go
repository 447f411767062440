package circle

import (
	"context"
	"fmt"
)

// Sentinel errors shared by every Repository implementation.
var (
	ErrCircleNotFound      = fmt.Errorf("circle not found")
	ErrMembershipNotFound  = fmt.Errorf("membership not found")
	ErrPromptNotFound      = fmt.Errorf("prompt not found")
	ErrDuplicateMembership = fmt.Errorf("membership already exists for this user and circle")
	ErrDuplicateInviteCode = fmt.Errorf("invite code already in use")
)

// Repository defines operations for Circle, Membership and Prompt.
//
// Lookup methods document their uniqueness contracts so the storage
// layer can be swapped without changing call sites: GetByInviteCode
// resolves at most one circle (invite codes are unique), and
// GetMembership resolves at most one membership per (user, circle).
type Repository interface {
	// WithinTx runs fn with every repository call made through ctx in
	// one atomic unit: all of fn's writes commit together or none do.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Circle methods
	CreateCircle(ctx context.Context, c *Circle) error
	GetCircleByID(ctx context.Context, id int64) (*Circle, error)
	GetCircleByInviteCode(ctx context.Context, code string) (*Circle, error)
	UpdateCircle(ctx context.Context, c *Circle) error
	ListActiveCircles(ctx context.Context) ([]*Circle, error)
	ListCirclesByAdmin(ctx context.Context, adminID int64) ([]*Circle, error)

	// Membership methods
	CreateMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, userID, circleID int64) (*Membership, error)
	UpdateMembership(ctx context.Context, m *Membership) error
	ListMembershipsByCircle(ctx context.Context, circleID int64) ([]*Membership, error)
	ListMembershipsByUser(ctx context.Context, userID int64) ([]*Membership, error)

	// Prompt methods
	CreatePrompt(ctx context.Context, p *Prompt) error
	GetPromptByID(ctx context.Context, id int64) (*Prompt, error)
	UpdatePrompt(ctx context.Context, p *Prompt) error
	ListPromptsByCircle(ctx context.Context, circleID int64) ([]*Prompt, error)
}
