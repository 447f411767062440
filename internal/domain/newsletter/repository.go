package newsletter

import (
	"context"
	"fmt"
)

// Sentinel errors shared by every Repository implementation.
var (
	ErrNotFound     = fmt.Errorf("newsletter not found")
	ErrDuplicate    = fmt.Errorf("newsletter already exists for this circle and cycle")
	ErrReadNotFound = fmt.Errorf("newsletter read receipt not found")
)

// Repository defines operations for Newsletter rows and read receipts.
//
// Create must refuse a second row for the same (circle, cycle); that
// unique constraint is the enforcement point for compile idempotence.
type Repository interface {
	Create(ctx context.Context, n *Newsletter) error
	GetByID(ctx context.Context, id int64) (*Newsletter, error)
	GetByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) (*Newsletter, error)
	CountByCircle(ctx context.Context, circleID int64) (int, error)
	ListByCircle(ctx context.Context, circleID int64) ([]*Newsletter, error)
	SetRecipientCount(ctx context.Context, id int64, count int) error

	// Read receipts
	CreateRead(ctx context.Context, r *Read) error
	GetRead(ctx context.Context, userID, newsletterID int64) (*Read, error)
	DeleteReadsByUser(ctx context.Context, userID int64) error
}
