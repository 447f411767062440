package user

import (
	"database/sql"
	"time"
)

// User represents an account, created on the first sign-in event from
// the identity provider and keyed to it by SubjectID.
type User struct {
	ID              int64
	SubjectID       string // external identity subject, unique
	Email           string
	Name            sql.NullString
	ImageURL        sql.NullString
	AvatarStorageID sql.NullString
	Timezone        sql.NullString
	PushPlayerID    sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayName resolves the name shown to other members: name, falling
// back to email, falling back to "Unknown Member".
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown Member"
	}
	if u.Name.Valid && u.Name.String != "" {
		return u.Name.String
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown Member"
}
