package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"moi-note/internal/domain"
)

const tokenIssuer = "moi-note"

type sessionClaims struct {
	Email   string      `json:"email"`
	Role    domain.Role `json:"role,omitempty"`
	Version int         `json:"ver"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (t *TokenIssuer) Issue(account *domain.Account) (*domain.Session, error) {
	now := t.now().UTC().Truncate(time.Second)
	claims := sessionClaims{
		Email:   account.Email,
		Role:    account.Role,
		Version: account.SessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return sessionFromClaims(signed, &claims), nil
}

func (t *TokenIssuer) Parse(token string) (*domain.Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("parse token: %w", domain.ErrNotAuthenticated)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("token claims incomplete: %w", domain.ErrNotAuthenticated)
	}
	return sessionFromClaims(token, claims), nil
}

func sessionFromClaims(token string, claims *sessionClaims) *domain.Session {
	session := &domain.Session{
		Token:   token,
		ID:      claims.ID,
		UserID:  claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		Version: claims.Version,
	}
	if claims.IssuedAt != nil {
		session.AuthenticatedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session
}
