package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"moi-note/internal/access"
	"moi-note/internal/domain"
	"moi-note/internal/identity"
	"moi-note/internal/repository"
)

// SignInResult reports where a freshly signed-in client should go next.
type SignInResult struct {
	Session  *domain.Session
	Role     domain.Role
	State    domain.LoginState
	Redirect string
}

// AuthService runs the first-login state machine on top of an identity.Gate.
//
// A pending reset is completed password first, flag second. If clearing the flag
// fails the new password is already active and the user stays in
// LoginStatePendingReset; signing in with the new password and setting a password
// once more recovers. Clearing the flag first could instead leave a provisioned
// password usable without ever being replaced.
type AuthService struct {
	users  repository.UserRepository
	roles  access.RoleResolver
	logger logrus.FieldLogger
}

func NewAuthService(users repository.UserRepository, roles access.RoleResolver, logger logrus.FieldLogger) *AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AuthService{
		users:  users,
		roles:  roles,
		logger: logger,
	}
}

func (s *AuthService) SignIn(ctx context.Context, gate *identity.Gate, email, password string) (*SignInResult, error) {
	session, err := gate.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	state, err := s.LoginState(ctx, session)
	if err != nil {
		gate.SignOut(ctx)
		return nil, err
	}

	role := s.roles.Resolve(session)
	result := &SignInResult{
		Session: session,
		Role:    role,
		State:   state,
	}
	if state == domain.LoginStateNormal {
		result.Redirect = access.HomeOf(role)
	}
	return result, nil
}

// LoginState looks up the first-login flag of a contributor. Admins never need a reset.
func (s *AuthService) LoginState(ctx context.Context, session *domain.Session) (domain.LoginState, error) {
	if session == nil || s.roles.Resolve(session) != domain.RoleContributor {
		return domain.LoginStateNormal, nil
	}

	record, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("user", session.Email).Warn("contributor has no user record")
			return domain.LoginStateNormal, nil
		}
		return "", domain.NewProviderError("load user record", err)
	}
	if record.IsFirstLogin {
		return domain.LoginStatePendingReset, nil
	}
	return domain.LoginStateNormal, nil
}

func (s *AuthService) CompletePasswordReset(ctx context.Context, gate *identity.Gate, newPassword, confirmation string) error {
	session := gate.Current()
	if session == nil {
		return domain.ErrNotAuthenticated
	}
	if newPassword != confirmation {
		return domain.ErrPasswordMismatch
	}
	if len(newPassword) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}

	state, err := s.LoginState(ctx, session)
	if err != nil {
		return err
	}
	if state != domain.LoginStatePendingReset {
		return domain.ErrResetNotPending
	}

	if err := gate.ChangePassword(ctx, newPassword); err != nil {
		if isDomainError(err) {
			return err
		}
		return domain.NewProviderError("change password", err)
	}

	cleared := ""
	if err := s.users.SetFirstLogin(ctx, session.UserID, false, &cleared); err != nil {
		s.logger.WithError(err).WithField("user", session.Email).
			Error("password changed but first-login flag is still set")
		return domain.NewProviderError("clear first login flag", err)
	}

	s.logger.WithField("user", session.Email).Info("first-login password reset completed")
	return nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrProvider,
		domain.ErrInvalidCredentials,
		domain.ErrWeakPassword,
		domain.ErrPasswordMismatch,
		domain.ErrNotAuthenticated,
		domain.ErrNotFound,
		domain.ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
