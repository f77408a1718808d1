// Package jwtmw issues, verifies and extracts HS256 session tokens.
package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wandertrails_backend/internal/feature/auth/domain/entity"
	"wandertrails_backend/internal/feature/auth/usecase"
)

// MinSecretLength is the shortest signing secret accepted at startup.
const MinSecretLength = 20

// ErrWeakSecret is returned by NewGenerator when the secret is too short.
var ErrWeakSecret = fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)

// Generator signs and verifies session tokens.
type Generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// Compile-time check to ensure Generator implements usecase.TokenIssuer.
var _ usecase.TokenIssuer = (*Generator)(nil)

// NewGenerator creates a new JWT generator with the provided secret and expiration duration.
func NewGenerator(secret string, expiration time.Duration) (*Generator, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &Generator{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of g that reads the current time from now.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	c := *g
	c.now = now
	return &c
}

// Expiration returns the configured token lifetime.
func (g *Generator) Expiration() time.Duration {
	return g.expiration
}

// Issue creates a signed token whose subject is userID.
func (g *Generator) Issue(userID string) (string, *entity.Session, error) {
	now := g.now()
	session := &entity.Session{
		TokenID:   uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(g.expiration),
	}

	claims := jwt.RegisteredClaims{
		ID:        session.TokenID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	// Round to what the token actually carries.
	session.IssuedAt = claims.IssuedAt.Time
	session.ExpiresAt = claims.ExpiresAt.Time
	return signed, session, nil
}

// Verify parses the token and returns its claims.
// Any failure (signature, algorithm, format, expiry, missing subject) yields usecase.ErrInvalidToken.
func (g *Generator) Verify(tokenStr string) (*entity.Session, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		// Only HMAC is allowed
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, usecase.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", usecase.ErrInvalidToken, errors.New("missing subject"))
	}

	session := &entity.Session{
		TokenID:   claims.ID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}
