package user

import (
	"context"
	"fmt"
)

// Sentinel errors shared by every Repository implementation, so call
// sites stay storage-agnostic.
var (
	ErrNotFound           = fmt.Errorf("user not found")
	ErrDuplicateSubjectID = fmt.Errorf("user with this subject id already exists")
)

// Repository defines the operations for persisting and retrieving User entities.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetBySubjectID(ctx context.Context, subjectID string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}
