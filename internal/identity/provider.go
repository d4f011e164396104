// Package identity holds the identity provider and the per-client Gate that
// tracks the current session.
package identity

import (
	"context"

	"moi-note/internal/domain"
)

type SessionEventKind string

const (
	SessionStarted SessionEventKind = "started"
	SessionEnded   SessionEventKind = "ended"
	SessionRevoked SessionEventKind = "revoked"
)

// SessionEvent is published by a Provider whenever a session starts or stops being valid.
type SessionEvent struct {
	Kind      SessionEventKind
	SessionID string
	UserID    string
}

// Provider authenticates users and manages their sessions.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, session *domain.Session) error
	ChangePassword(ctx context.Context, session *domain.Session, newPassword string) error
	VerifyPassword(ctx context.Context, session *domain.Session, password string) error
	CurrentSession(ctx context.Context, token string) (*domain.Session, error)
	OnSessionChange(fn func(SessionEvent)) (unsubscribe func())
}

// Directory is the administrative side of a Provider.
type Directory interface {
	CreateAccount(ctx context.Context, email, password string, role domain.Role) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	SetPassword(ctx context.Context, id, password string) error
	DeleteAccount(ctx context.Context, id string) error
	RevokeUser(ctx context.Context, userID string) error
}
