package reminder

import (
	"context"
	"fmt"
)

// ErrPreferenceNotFound means no preference row exists for the user;
// callers treat the user as opted-in to everything.
var ErrPreferenceNotFound = fmt.Errorf("notification preference not found")

// Repository defines operations for AdminReminder and Preference.
type Repository interface {
	CreateReminder(ctx context.Context, r *AdminReminder) error
	CountReminders(ctx context.Context, adminUserID, circleID int64, cycleID string) (int, error)
	DeleteRemindersByCircleAndCycle(ctx context.Context, circleID int64, cycleID string) (int, error)

	// GetPreference returns ErrPreferenceNotFound when no row exists;
	// callers treat that as opted-in to everything.
	GetPreference(ctx context.Context, userID int64) (*Preference, error)
	UpsertPreference(ctx context.Context, p *Preference) error
}
