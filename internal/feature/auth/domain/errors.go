// Package domain defines domain-level errors for the auth feature.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an auth failure. Transport layers map each kind to exactly one status code.
type Kind int

const (
	// KindInternal is an unexpected store, hash or signing failure.
	KindInternal Kind = iota
	// KindValidation is malformed input rejected before any business rule runs.
	KindValidation
	// KindConflict is a duplicate email at signup.
	KindConflict
	// KindUnauthenticated covers bad credentials and missing, invalid or expired sessions.
	KindUnauthenticated
	// KindBadRequest is an invalid or expired reset token.
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// AuthError is the error type returned by every auth operation.
// Message is safe to show to end users; Err keeps the underlying cause for logs.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// User-facing messages.
const (
	MsgEmailTaken         = "That email is already on this journey. Try logging in instead."
	MsgInvalidCredentials = "That email and password don't match. Let's try again."
	MsgUnauthorized       = "Unauthorized"
	MsgSessionExpired     = "Session expired. Please log in again."
	MsgInvalidResetLink   = "Invalid reset link."
	MsgResetLinkExpired   = "That reset link is invalid or has expired."
	MsgServerError        = "Server error"
	MsgInvalidRequest     = "Invalid request"
)

// Constructors for each kind.

func Validation(msg string) *AuthError {
	return &AuthError{Kind: KindValidation, Message: msg}
}

func Conflict(msg string) *AuthError {
	return &AuthError{Kind: KindConflict, Message: msg}
}

func Unauthenticated(msg string, cause error) *AuthError {
	return &AuthError{Kind: KindUnauthenticated, Message: msg, Err: cause}
}

func BadRequest(msg string) *AuthError {
	return &AuthError{Kind: KindBadRequest, Message: msg}
}

func Internal(cause error) *AuthError {
	return &AuthError{Kind: KindInternal, Message: MsgServerError, Err: cause}
}

// KindOf returns the kind of err, or KindInternal if err is not an AuthError.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
