package domain

import "time"

// Role is the access level a session is granted.
type Role string

const (
	RoleAnonymous   Role = "anonymous"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is a role the identity provider may issue.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleContributor
}

// MinPasswordLength is the shortest password the identity provider accepts.
const MinPasswordLength = 6

// Account is the identity provider's own record of a user.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	// SessionVersion is bumped to invalidate every token issued before it.
	SessionVersion int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserRecord is the profile stored alongside an identity. Admin accounts have none.
type UserRecord struct {
	ID              string
	Email           string
	IsFirstLogin    bool
	InitialPassword string
	CreatedAt       time.Time
}

// LoginState tells whether a signed-in user still has to replace a provisioned password.
type LoginState string

const (
	LoginStateNormal       LoginState = "normal"
	LoginStatePendingReset LoginState = "pending_reset"
)
