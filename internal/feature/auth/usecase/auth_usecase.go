package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"wandertrails_backend/internal/feature/auth/domain"
	"wandertrails_backend/internal/feature/auth/domain/entity"
)

// dummyPasswordHash is compared against when the email is unknown so that
// login takes the same time whether or not the account exists.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Config holds the tunables of the auth usecase.
type Config struct {
	// ResetTokenTTL is how long a reset secret stays usable.
	ResetTokenTTL time.Duration
	// ResetURLBase is the frontend origin the reset link points at.
	ResetURLBase string
	// Revocations is optional. When nil, logout only clears the cookie.
	Revocations RevocationList
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User  *entity.User
	Token string
	// ExpiresAt is the session token expiry, zero if the token carries none.
	ExpiresAt time.Time
}

// ForgotPasswordResult is returned by ForgotPassword.
// ResetURL is empty when the email has no account.
type ForgotPasswordResult struct {
	ResetURL string
}

// authUsecase implements the auth business rules.
// It keeps no state between calls; the repository is the single source of truth.
type authUsecase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	resets ResetTokens
	cfg    Config
}

// NewAuthUsecase creates a new instance of authUsecase.
func NewAuthUsecase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, resets ResetTokens, cfg Config) *authUsecase {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &authUsecase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		resets: resets,
		cfg:    cfg,
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an account and issues a session token for it.
func (u *authUsecase) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.Conflict(domain.MsgEmailTaken)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, domain.Internal(fmt.Errorf("failed to look up email: %w", err))
	}

	hashed, err := u.hasher.Hash(password)
	if err != nil {
		return nil, domain.Internal(err)
	}

	// The pre-check above races with concurrent signups; the store has the final word.
	user, err := u.users.Create(ctx, strings.TrimSpace(name), email, hashed)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, domain.Conflict(domain.MsgEmailTaken)
		}
		return nil, domain.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	return u.issue(user)
}

// Login verifies credentials and issues a session token.
// Unknown emails and wrong passwords produce the same error after the same amount of work.
func (u *authUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, domain.Internal(fmt.Errorf("failed to look up email: %w", err))
	}

	passwordHash := dummyPasswordHash
	if err == nil {
		passwordHash = user.PasswordHash
	}
	ok := u.hasher.Verify(password, passwordHash)

	if err != nil || !ok {
		return nil, domain.Unauthenticated(domain.MsgInvalidCredentials, nil)
	}

	return u.issue(user)
}

// GetSession resolves a session token to its user.
func (u *authUsecase) GetSession(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, domain.Unauthenticated(domain.MsgUnauthorized, nil)
	}

	session, err := u.tokens.Verify(token)
	if err != nil {
		return nil, domain.Unauthenticated(domain.MsgUnauthorized, err)
	}

	if u.cfg.Revocations != nil && session.TokenID != "" {
		revoked, err := u.cfg.Revocations.IsRevoked(ctx, session.TokenID)
		if err != nil {
			return nil, domain.Internal(fmt.Errorf("failed to check revocation: %w", err))
		}
		if revoked {
			return nil, domain.Unauthenticated(domain.MsgSessionExpired, nil)
		}
	}

	user, err := u.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, domain.Unauthenticated(domain.MsgSessionExpired, err)
		}
		return nil, domain.Internal(fmt.Errorf("failed to load user: %w", err))
	}
	return user, nil
}

// Logout revokes the token when a revocation list is configured.
// Clearing the cookie is the caller's job; an unverifiable token is ignored.
func (u *authUsecase) Logout(ctx context.Context, token string) error {
	if u.cfg.Revocations == nil || token == "" {
		return nil
	}

	session, err := u.tokens.Verify(token)
	if err != nil || session.TokenID == "" {
		return nil
	}

	ttl := session.TTL(u.cfg.Now())
	if ttl <= 0 {
		return nil
	}
	if err := u.cfg.Revocations.Revoke(ctx, session.TokenID, ttl); err != nil {
		return domain.Internal(fmt.Errorf("failed to revoke session: %w", err))
	}
	return nil
}

// ForgotPassword starts a password reset.
// The outcome looks the same for unknown emails, except that no ResetURL is produced.
func (u *authUsecase) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	email = NormalizeEmail(email)

	_, lookupErr := u.users.FindByEmail(ctx, email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrUserNotFound) {
		return nil, domain.Internal(fmt.Errorf("failed to look up email: %w", lookupErr))
	}

	// Generated either way so both paths do comparable work.
	token, err := u.resets.Generate()
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to generate reset token: %w", err))
	}
	if lookupErr != nil {
		return &ForgotPasswordResult{}, nil
	}

	expiresAt := u.cfg.Now().Add(u.cfg.ResetTokenTTL)
	if err := u.users.SetResetToken(ctx, email, u.resets.Digest(token), expiresAt); err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to store reset token: %w", err))
	}

	return &ForgotPasswordResult{ResetURL: u.resetURL(token)}, nil
}

// ResetPassword consumes a reset token and replaces the password.
func (u *authUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.BadRequest(domain.MsgInvalidResetLink)
	}

	digest := u.resets.Digest(token)
	user, err := u.users.FindByResetTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.BadRequest(domain.MsgResetLinkExpired)
		}
		return domain.Internal(fmt.Errorf("failed to look up reset token: %w", err))
	}

	// Missing, unparseable and past expiries all fold into one message.
	if !user.HasPendingReset(u.cfg.Now()) {
		return domain.BadRequest(domain.MsgResetLinkExpired)
	}

	hashed, err := u.hasher.Hash(newPassword)
	if err != nil {
		return domain.Internal(err)
	}

	if err := u.users.UpdatePasswordAndClearReset(ctx, user.ID, digest, hashed); err != nil {
		if errors.Is(err, ErrResetTokenConsumed) || errors.Is(err, ErrUserNotFound) {
			return domain.BadRequest(domain.MsgResetLinkExpired)
		}
		return domain.Internal(fmt.Errorf("failed to update password: %w", err))
	}

	slog.Info("password reset completed", "user_id", user.ID)
	return nil
}

func (u *authUsecase) issue(user *entity.User) (*AuthResult, error) {
	token, session, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to generate token: %w", err))
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (u *authUsecase) resetURL(token string) string {
	base := strings.TrimRight(u.cfg.ResetURLBase, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}
