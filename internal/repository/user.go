package repository

import (
	"context"

	"moi-note/internal/domain"
)

// AccountRepository persists identity provider accounts.
type AccountRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// BumpSessionVersion invalidates every token issued to the account so far.
	BumpSessionVersion(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UserRepository persists UserRecords, keyed by identity.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.UserRecord) error
	Get(ctx context.Context, id string) (*domain.UserRecord, error)
	List(ctx context.Context) ([]domain.UserRecord, error)
	Count(ctx context.Context) (int, error)
	SetFirstLogin(ctx context.Context, id string, firstLogin bool, initialPassword *string) error
	Delete(ctx context.Context, id string) error
}
