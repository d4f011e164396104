package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidEntry       = errors.New("invalid entry")
	ErrInvalidEvent       = errors.New("invalid event details")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrResetNotPending    = errors.New("no password reset pending")
	ErrStorageDisabled    = errors.New("photo storage is not configured")

	// ErrProvider matches every ProviderError.
	ErrProvider = errors.New("identity provider error")
)

// ProviderError wraps a failure reported by the identity provider or a backing store.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// NewProviderError wraps err unless it already carries a domain meaning.
func NewProviderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Err: err}
}
