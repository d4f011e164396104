package identity

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"moi-note/internal/domain"
)

// Listener receives the new session after every change; nil means signed out.
type Listener func(session *domain.Session)

// Gate owns the session of a single client. Listeners are called synchronously,
// outside the gate's lock, once the provider has confirmed the change.
type Gate struct {
	provider Provider
	logger   logrus.FieldLogger
	now      func() time.Time

	mu        sync.Mutex
	session   *domain.Session
	expiry    *time.Timer
	listeners map[int]Listener
	nextID    int
	unwatch   func()
	closed    bool
}

func NewGate(provider Provider, logger logrus.FieldLogger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	g := &Gate{
		provider:  provider,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	g.unwatch = provider.OnSessionChange(g.handleProviderEvent)
	return g
}

// Current returns the active session, or nil.
func (g *Gate) Current() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session.Expired(g.now()) {
		return nil
	}
	return g.session
}

func (g *Gate) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	session, err := g.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	g.replace(session)
	return session, nil
}

// Restore adopts the session identified by a previously issued token.
func (g *Gate) Restore(ctx context.Context, token string) (*domain.Session, error) {
	session, err := g.provider.CurrentSession(ctx, token)
	if err != nil {
		return nil, err
	}
	g.replace(session)
	return session, nil
}

// SignOut always clears the local session; provider failures are only logged.
func (g *Gate) SignOut(ctx context.Context) {
	g.mu.Lock()
	session := g.session
	g.mu.Unlock()
	if session == nil {
		return
	}

	if err := g.provider.SignOut(ctx, session); err != nil {
		g.logger.WithError(err).WithField("user", session.Email).Warn("provider sign out failed")
	}
	g.clear(session.ID)
}

func (g *Gate) ChangePassword(ctx context.Context, newPassword string) error {
	session := g.Current()
	if session == nil {
		return domain.ErrNotAuthenticated
	}
	if len(newPassword) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}
	return g.provider.ChangePassword(ctx, session, newPassword)
}

// Reauthenticate re-confirms the current user's password with the provider.
func (g *Gate) Reauthenticate(ctx context.Context, password string) error {
	session := g.Current()
	if session == nil {
		return domain.ErrNotAuthenticated
	}
	return g.provider.VerifyPassword(ctx, session, password)
}

func (g *Gate) Subscribe(l Listener) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = l
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// Close stops following the provider. The session itself is left untouched.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	if g.expiry != nil {
		g.expiry.Stop()
		g.expiry = nil
	}
	g.listeners = make(map[int]Listener)
	g.mu.Unlock()

	g.unwatch()
}

func (g *Gate) handleProviderEvent(ev SessionEvent) {
	if ev.Kind == SessionStarted {
		return
	}
	g.clear(ev.SessionID)
}

func (g *Gate) replace(session *domain.Session) {
	g.mu.Lock()
	g.session = session
	if g.expiry != nil {
		g.expiry.Stop()
		g.expiry = nil
	}
	if !session.ExpiresAt.IsZero() && !g.closed {
		id := session.ID
		g.expiry = time.AfterFunc(session.ExpiresAt.Sub(g.now()), func() { g.clear(id) })
	}
	g.mu.Unlock()

	g.notify(session)
}

// clear drops the session if it is still the one identified by sessionID.
func (g *Gate) clear(sessionID string) {
	g.mu.Lock()
	if g.session == nil || g.session.ID != sessionID {
		g.mu.Unlock()
		return
	}
	g.session = nil
	if g.expiry != nil {
		g.expiry.Stop()
		g.expiry = nil
	}
	g.mu.Unlock()

	g.notify(nil)
}

func (g *Gate) notify(session *domain.Session) {
	g.mu.Lock()
	listeners := make([]Listener, 0, len(g.listeners))
	for _, l := range g.listeners {
		listeners = append(listeners, l)
	}
	g.mu.Unlock()

	for _, l := range listeners {
		l(session)
	}
}
