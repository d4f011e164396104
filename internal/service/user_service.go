package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	"moi-note/internal/domain"
	"moi-note/internal/identity"
	"moi-note/internal/repository"
)

const (
	generatedPasswordLength = 8
	passwordAlphabet        = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// CreatedUser is returned once so the admin can hand out the provisional password.
type CreatedUser struct {
	Record   domain.UserRecord
	Password string
}

// UserService covers contributor administration and the admin bootstrap.
type UserService struct {
	users     repository.UserRepository
	directory identity.Directory
	logger    logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, directory identity.Directory, logger logrus.FieldLogger) *UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &UserService{
		users:     users,
		directory: directory,
		logger:    logger,
	}
}

// CreateUser provisions a contributor. An empty password is replaced by a random one.
func (s *UserService) CreateUser(ctx context.Context, email, password string) (*CreatedUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if password == "" {
		generated, err := generatePassword()
		if err != nil {
			return nil, err
		}
		password = generated
	}

	account, err := s.directory.CreateAccount(ctx, email, password, domain.RoleContributor)
	if err != nil {
		return nil, err
	}

	record := domain.UserRecord{
		ID:              account.ID,
		Email:           account.Email,
		IsFirstLogin:    true,
		InitialPassword: password,
	}
	if err := s.users.Create(ctx, &record); err != nil {
		if delErr := s.directory.DeleteAccount(ctx, account.ID); delErr != nil {
			s.logger.WithError(delErr).WithField("user", email).Error("roll back account after failed user record")
		}
		return nil, fmt.Errorf("create user record: %w", err)
	}

	s.logger.WithField("user", email).Info("contributor created")
	return &CreatedUser{Record: record, Password: password}, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	return s.users.List(ctx)
}

// DeleteUser removes both the user record and the identity, ending its sessions.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.directory.DeleteAccount(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.logger.WithField("id", id).Info("contributor deleted")
	return nil
}

// ResetPassword issues a new provisional password and puts the user back into
// the first-login state.
func (s *UserService) ResetPassword(ctx context.Context, id string) (string, error) {
	if _, err := s.users.Get(ctx, id); err != nil {
		return "", err
	}
	password, err := generatePassword()
	if err != nil {
		return "", err
	}
	if err := s.directory.SetPassword(ctx, id, password); err != nil {
		return "", err
	}
	if err := s.users.SetFirstLogin(ctx, id, true, &password); err != nil {
		return "", err
	}
	if err := s.directory.RevokeUser(ctx, id); err != nil {
		return "", err
	}
	s.logger.WithField("id", id).Info("contributor password reset")
	return password, nil
}

// EnsureAdmin creates the admin account on first start.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	account, err := s.directory.GetAccountByEmail(ctx, email)
	if err == nil {
		if account.Role != domain.RoleAdmin {
			s.logger.WithField("user", email).Warn("admin email belongs to a non-admin account")
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if password == "" {
		return fmt.Errorf("admin account %s does not exist and no admin password is configured", email)
	}
	if _, err := s.directory.CreateAccount(ctx, email, password, domain.RoleAdmin); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	s.logger.WithField("user", email).Info("admin account created")
	return nil
}

func generatePassword() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < generatedPasswordLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}
