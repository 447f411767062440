// internal/domain/circle/circle.go
package circle

import (
	"database/sql"
	"time"
)

// Circle is a private group of friends answering monthly prompts.
// Exactly one member holds the admin role; the AdminID column mirrors
// that membership and is reassigned only via an explicit transfer.
type Circle struct {
	ID             int64
	Name           string
	Description    sql.NullString
	IconStorageID  sql.NullString
	CoverStorageID sql.NullString
	AdminID        int64
	InviteCode     string // opaque, unique, rotatable
	Timezone       string
	ArchivedAt     sql.NullTime // archiving is terminal for invite acceptance
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Circle) Archived() bool {
	return c.ArchivedAt.Valid
}

// Role of a member within a circle.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Membership links a user to a circle. At most one membership row
// exists per (user, circle); leaving sets LeftAt and rejoining clears
// it, so history is carried by the same row.
type Membership struct {
	ID                int64
	UserID            int64
	CircleID          int64
	Role              Role
	JoinedAt          time.Time
	LeftAt            sql.NullTime
	Blocked           bool // terminal; blocked members may not rejoin
	EmailUnsubscribed bool
}

// Active reports whether the membership is current (not left).
func (m *Membership) Active() bool {
	return m != nil && !m.LeftAt.Valid
}

// Eligible reports whether the member participates in cycles and
// receives notifications: active and not blocked.
func (m *Membership) Eligible() bool {
	return m.Active() && !m.Blocked
}

// Prompt is a recurring monthly question belonging to a circle.
type Prompt struct {
	ID        int64
	CircleID  int64
	Text      string
	Order     int
	Active    bool
	CreatedAt time.Time
}

const (
	MaxPromptText    = 200
	MaxActivePrompts = 8
)

// DefaultPrompts seed every new circle.
var DefaultPrompts = []string{
	"What did you do this month?",
	"One Good Thing",
	"On Your Mind",
	"What are you listening to?",
}
