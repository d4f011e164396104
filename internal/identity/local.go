package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"moi-note/internal/domain"
	"moi-note/internal/repository"
)

// LocalOptions tunes a LocalProvider.
type LocalOptions struct {
	BcryptCost int
	Logger     logrus.FieldLogger
}

// LocalProvider is a Provider and Directory backed by the accounts table.
// Revocations are kept in memory and do not survive a restart.
type LocalProvider struct {
	accounts repository.AccountRepository
	tokens   *TokenIssuer
	cost     int
	logger   logrus.FieldLogger

	mu        sync.Mutex
	live      map[string]map[string]time.Time // user id -> session id -> expiry
	revoked   map[string]time.Time            // session id -> expiry
	listeners map[int]func(SessionEvent)
	nextID    int
}

func NewLocalProvider(accounts repository.AccountRepository, tokens *TokenIssuer, opts LocalOptions) *LocalProvider {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &LocalProvider{
		accounts:  accounts,
		tokens:    tokens,
		cost:      opts.BcryptCost,
		logger:    opts.Logger,
		live:      make(map[string]map[string]time.Time),
		revoked:   make(map[string]time.Time),
		listeners: make(map[int]func(SessionEvent)),
	}
}

var (
	_ Provider  = (*LocalProvider)(nil)
	_ Directory = (*LocalProvider)(nil)
)

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := p.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session, err := p.tokens.Issue(account)
	if err != nil {
		return nil, domain.NewProviderError("issue session", err)
	}

	p.mu.Lock()
	p.pruneLocked(time.Now())
	sessions, ok := p.live[account.ID]
	if !ok {
		sessions = make(map[string]time.Time)
		p.live[account.ID] = sessions
	}
	sessions[session.ID] = session.ExpiresAt
	p.mu.Unlock()

	p.logger.WithField("user", account.Email).Info("signed in")
	p.emit(SessionEvent{Kind: SessionStarted, SessionID: session.ID, UserID: account.ID})
	return session, nil
}

func (p *LocalProvider) SignOut(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}
	p.mu.Lock()
	p.revokeLocked(session.UserID, session.ID, session.ExpiresAt)
	p.mu.Unlock()

	p.emit(SessionEvent{Kind: SessionEnded, SessionID: session.ID, UserID: session.UserID})
	return nil
}

func (p *LocalProvider) ChangePassword(ctx context.Context, session *domain.Session, newPassword string) error {
	if session == nil {
		return domain.ErrNotAuthenticated
	}
	if _, err := p.CurrentSession(ctx, session.Token); err != nil {
		return domain.NewProviderError("change password", err)
	}
	if len(newPassword) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}
	return p.SetPassword(ctx, session.UserID, newPassword)
}

func (p *LocalProvider) VerifyPassword(ctx context.Context, session *domain.Session, password string) error {
	if session == nil {
		return domain.ErrNotAuthenticated
	}
	_, err := p.checkPassword(ctx, session.Email, password)
	return err
}

func (p *LocalProvider) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	session, err := p.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	_, revoked := p.revoked[session.ID]
	p.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("session revoked: %w", domain.ErrNotAuthenticated)
	}

	// the in-memory list does not survive a restart; the account row does
	account, err := p.accounts.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("account removed: %w", domain.ErrNotAuthenticated)
		}
		return nil, domain.NewProviderError("lookup account", err)
	}
	if account.SessionVersion != session.Version {
		return nil, fmt.Errorf("session revoked: %w", domain.ErrNotAuthenticated)
	}
	return session, nil
}

func (p *LocalProvider) OnSessionChange(fn func(SessionEvent)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string, role domain.Role) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if len(password) < domain.MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, domain.NewProviderError("hash password", err)
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, domain.NewProviderError("create account", err)
	}
	return account, nil
}

func (p *LocalProvider) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return p.accounts.GetByEmail(ctx, email)
}

// SetPassword replaces an account password. Sessions stay valid; callers revoke
// them explicitly when needed.
func (p *LocalProvider) SetPassword(ctx context.Context, id, password string) error {
	if len(password) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return domain.NewProviderError("hash password", err)
	}
	if err := p.accounts.UpdatePassword(ctx, id, string(hash)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.NewProviderError("update password", err)
	}
	return nil
}

func (p *LocalProvider) DeleteAccount(ctx context.Context, id string) error {
	if err := p.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.NewProviderError("delete account", err)
	}
	p.endSessions(id)
	return nil
}

// RevokeUser invalidates every token issued to the user, including tokens this
// process no longer remembers.
func (p *LocalProvider) RevokeUser(ctx context.Context, userID string) error {
	if err := p.accounts.BumpSessionVersion(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.NewProviderError("revoke sessions", err)
	}
	p.endSessions(userID)
	return nil
}

// endSessions notifies listeners about every live session of the user.
func (p *LocalProvider) endSessions(userID string) {
	p.mu.Lock()
	sessions := p.live[userID]
	ids := make([]string, 0, len(sessions))
	for id, exp := range sessions {
		p.revoked[id] = exp
		ids = append(ids, id)
	}
	delete(p.live, userID)
	p.mu.Unlock()

	for _, id := range ids {
		p.emit(SessionEvent{Kind: SessionRevoked, SessionID: id, UserID: userID})
	}
}

func (p *LocalProvider) checkPassword(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.NewProviderError("lookup account", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return account, nil
}

func (p *LocalProvider) revokeLocked(userID, sessionID string, expiresAt time.Time) {
	p.revoked[sessionID] = expiresAt
	if sessions, ok := p.live[userID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(p.live, userID)
		}
	}
}

func (p *LocalProvider) pruneLocked(now time.Time) {
	for id, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, id)
		}
	}
	for user, sessions := range p.live {
		for id, exp := range sessions {
			if now.After(exp) {
				delete(sessions, id)
			}
		}
		if len(sessions) == 0 {
			delete(p.live, user)
		}
	}
}

func (p *LocalProvider) emit(ev SessionEvent) {
	p.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
