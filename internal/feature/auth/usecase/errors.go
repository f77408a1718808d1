// Package usecase implements the business logic for the auth feature.
package usecase

import "errors"

var (
	// ErrUserNotFound is returned when a user cannot be found by email, ID or reset digest.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned when attempting to create a user with an email that already exists.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrResetTokenConsumed is returned when the reset digest changed between lookup and update,
	// i.e. the token was used or superseded by a concurrent request.
	ErrResetTokenConsumed = errors.New("reset token already consumed")

	// ErrInvalidToken is returned by token verifiers for any signature, format or expiry failure.
	ErrInvalidToken = errors.New("invalid token")
)
