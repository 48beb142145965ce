package models

import (
	"time"
)

// Roles an account can hold. Moderators curate recipes and comments,
// admins additionally manage accounts.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID               string
	Email            string
	PasswordHash     string
	Name             string
	Role             string // "user", "moderator" or "admin"
	FailedLoginCount int
	LockedUntil      *time.Time // set when FailedLoginCount crosses the lockout threshold
	LastLogin        *time.Time // updated only on successful authentication
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Locked reports whether the account is locked out as of now.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// ValidRole reports whether role is one of the enumerated account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}
