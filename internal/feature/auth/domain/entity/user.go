// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User represents a registered account.
// It carries the credential material that only the store and the auth usecase may see.
type User struct {
	// ID is the opaque unique identifier generated at signup. It never changes.
	ID string

	// Name is the display name chosen at signup.
	Name string

	// Email is the lowercase, trimmed login address. It is unique across all users.
	Email string

	// PasswordHash is the bcrypt hash of the login password.
	// It must never leave the auth feature.
	PasswordHash string

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time

	// ResetTokenHash is the SHA-256 digest of the pending reset secret, empty when no reset is pending.
	ResetTokenHash string

	// ResetTokenExpiresAt is the absolute expiry of the pending reset secret.
	// It is nil when no reset is pending or when the stored value could not be parsed.
	ResetTokenExpiresAt *time.Time
}

// PublicUser is the projection of a user that is safe to return to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips every credential field from the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// HasPendingReset reports whether a reset secret is stored and still valid at now.
func (u *User) HasPendingReset(now time.Time) bool {
	if u.ResetTokenHash == "" || u.ResetTokenExpiresAt == nil {
		return false
	}
	return !now.After(*u.ResetTokenExpiresAt)
}
