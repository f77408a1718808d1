package usecase

import (
	"context"
	"time"

	"wandertrails_backend/internal/feature/auth/domain/entity"
)

// UserRepository abstracts the Credential Store.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
//
// Every implementation must guarantee that a reader never observes a partial write
// and that email stays unique even under concurrent Create calls.
type UserRepository interface {
	// Create persists a new user and returns it with ID and CreatedAt populated.
	// It returns ErrEmailAlreadyExists if the email is taken.
	Create(ctx context.Context, name, email, passwordHash string) (*entity.User, error)

	// FindByEmail returns ErrUserNotFound if no user has the email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID returns ErrUserNotFound if no user has the ID.
	FindByID(ctx context.Context, id string) (*entity.User, error)

	// SetResetToken replaces the pending reset digest of the user with the email.
	// It is a no-op, not an error, when the email does not exist.
	SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error

	// FindByResetTokenHash returns ErrUserNotFound if no user holds the digest.
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error)

	// UpdatePasswordAndClearReset stores the new password hash and clears both reset
	// fields in one write. The write only happens while the user still holds tokenHash;
	// otherwise ErrResetTokenConsumed is returned.
	UpdatePasswordAndClearReset(ctx context.Context, userID, tokenHash, newHash string) error
}

// RevocationList records logged-out session tokens until they expire.
// A nil RevocationList means sessions are purely stateless.
type RevocationList interface {
	// Revoke marks the token ID as revoked for the given duration.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether the token ID was revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// PasswordHasher hashes login secrets with a slow salted function.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash, in constant time.
	Verify(plaintext, hash string) bool
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	// Issue returns a signed token for the user together with its decoded claims.
	Issue(userID string) (string, *entity.Session, error)
	// Verify returns ErrInvalidToken for any signature, format, subject or expiry failure.
	Verify(token string) (*entity.Session, error)
}

// ResetTokens generates reset secrets and their fast digests.
type ResetTokens interface {
	Generate() (string, error)
	Digest(token string) string
}
