package dto

import "wandertrails_backend/internal/feature/auth/domain/entity"

// UserResponse wraps the public view of a user. It never carries credentials.
type UserResponse struct {
	User entity.PublicUser `json:"user"`
}

// ForgotPasswordResponse is always {"ok": true}; ResetURL is set only when exposure is enabled
// and the email belongs to an account.
type ForgotPasswordResponse struct {
	OK       bool   `json:"ok"`
	ResetURL string `json:"resetUrl,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
