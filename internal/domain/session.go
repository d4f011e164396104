package domain

import "time"

// Session is the authenticated context held by one client.
type Session struct {
	Token           string
	ID              string
	UserID          string
	Email           string
	Role            Role
	Version         int
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
}

// Expired reports whether the session token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
