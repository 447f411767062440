// internal/domain/reminder/reminder.go
package reminder

import (
	"database/sql"
	"time"
)

// AdminReminder records one reminder an admin sent for a cycle. A null
// TargetUserID means a bulk reminder to every non-submitter. Targeted
// and bulk reminders draw from the same per-(admin, circle, cycle)
// counter, capped at MaxPerCycle records.
type AdminReminder struct {
	ID           int64
	CircleID     int64
	AdminUserID  int64
	TargetUserID sql.NullInt64 // null = bulk
	CycleID      string        // YYYY-MM
	SentAt       time.Time
}

// MaxPerCycle caps reminder records per (admin, circle, cycle).
const MaxPerCycle = 3

// Preference holds a user's notification opt-ins. Absence of a row
// implies both true.
type Preference struct {
	ID                  int64
	UserID              int64
	SubmissionReminders bool
	NewsletterReady     bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
