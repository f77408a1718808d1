// Package gotrue serves the auth operations through a hosted GoTrue (Supabase Auth) instance.
//
// The client mirrors the local auth usecase so the same HTTP handlers can sit in front of
// either backend. Passwords and sessions are then owned by the provider; nothing is stored locally.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wandertrails_backend/internal/feature/auth/domain"
	"wandertrails_backend/internal/feature/auth/domain/entity"
	"wandertrails_backend/internal/feature/auth/usecase"
)

// defaultName is shown for accounts created without a display name.
const defaultName = "Traveler"

// Client talks to the GoTrue REST API under <baseURL>/auth/v1.
type Client struct {
	baseURL    string
	anonKey    string
	redirectTo string
	http       *http.Client
	now        func() time.Time
}

// NewClient creates a client for the project at baseURL (for example https://xyz.supabase.co).
// redirectTo is the page recovery emails link back to; it may be empty.
func NewClient(baseURL, anonKey, redirectTo string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" || anonKey == "" {
		return nil, errors.New("gotrue base URL and anon key are required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gotrue base URL: %w", err)
	}
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/auth/v1",
		anonKey:    anonKey,
		redirectTo: redirectTo,
		http:       httpClient,
		now:        time.Now,
	}, nil
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type sessionResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *gotrueUser `json:"user"`
}

// signupResponse is a session when email confirmation is off, or a bare user when it is on.
type signupResponse struct {
	sessionResponse
	gotrueUser
}

// apiError covers both the current ({code, error_code, msg}) and the legacy
// ({error, error_description}) GoTrue error bodies.
type apiError struct {
	Status           int    `json:"-"`
	Code             string `json:"error_code"`
	Msg              string `json:"msg"`
	LegacyError      string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// message is the provider's human-readable explanation, if any.
func (e *apiError) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.ErrorDescription
}

func (e *apiError) Error() string {
	msg := e.message()
	code := e.Code
	if code == "" {
		code = e.LegacyError
	}
	return fmt.Sprintf("gotrue: status %d: %s: %s", e.Status, code, msg)
}

func (e *apiError) is(codes ...string) bool {
	for _, c := range codes {
		if e.Code == c || e.LegacyError == c {
			return true
		}
	}
	return false
}

func (u *gotrueUser) toEntity() *entity.User {
	name := defaultName
	for _, key := range []string{"name", "full_name"} {
		if v, ok := u.UserMetadata[key].(string); ok && strings.TrimSpace(v) != "" {
			name = v
			break
		}
	}
	if name == defaultName && u.Email != "" {
		name = u.Email
	}
	return &entity.User{
		ID:        u.ID,
		Name:      name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Signup registers the account with the provider. When the project requires email
// confirmation no session is returned and the result carries an empty token.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*usecase.AuthResult, error) {
	body := map[string]any{
		"email":    usecase.NormalizeEmail(email),
		"password": password,
		"data":     map[string]string{"name": strings.TrimSpace(name)},
	}

	var res signupResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &res); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.is("user_already_exists", "email_exists") {
			return nil, domain.Conflict(domain.MsgEmailTaken)
		}
		if errors.As(err, &apiErr) && apiErr.is("weak_password", "validation_failed") {
			return nil, domain.Validation(apiErr.message())
		}
		return nil, domain.Internal(err)
	}

	user := res.User
	if user == nil {
		user = &res.gotrueUser
	}
	if user.ID == "" {
		return nil, domain.Internal(errors.New("gotrue: signup returned no user"))
	}
	return c.result(user, res.AccessToken, res.ExpiresIn), nil
}

// Login exchanges email and password for a provider session.
func (c *Client) Login(ctx context.Context, email, password string) (*usecase.AuthResult, error) {
	body := map[string]string{"email": usecase.NormalizeEmail(email), "password": password}

	var res sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &res); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return nil, domain.Unauthenticated(domain.MsgInvalidCredentials, err)
		}
		return nil, domain.Internal(err)
	}
	if res.User == nil || res.AccessToken == "" {
		return nil, domain.Internal(errors.New("gotrue: login returned no session"))
	}
	return c.result(res.User, res.AccessToken, res.ExpiresIn), nil
}

// GetSession resolves a provider access token to its user.
func (c *Client) GetSession(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, domain.Unauthenticated(domain.MsgUnauthorized, nil)
	}

	var user gotrueUser
	if err := c.do(ctx, http.MethodGet, "/user", token, nil, &user); err != nil {
		if isAuthFailure(err) {
			return nil, domain.Unauthenticated(domain.MsgUnauthorized, err)
		}
		return nil, domain.Internal(err)
	}
	return user.toEntity(), nil
}

// Logout revokes the provider session. Tokens the provider no longer accepts are ignored.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodPost, "/logout", token, nil, nil); err != nil {
		if isAuthFailure(err) {
			return nil
		}
		return domain.Internal(err)
	}
	return nil
}

// ForgotPassword asks the provider to email a recovery link.
// The provider answers the same way for unknown emails and the link is never returned.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*usecase.ForgotPasswordResult, error) {
	path := "/recover"
	if c.redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(c.redirectTo)
	}
	body := map[string]string{"email": usecase.NormalizeEmail(email)}
	if err := c.do(ctx, http.MethodPost, path, "", body, nil); err != nil {
		return nil, domain.Internal(err)
	}
	return &usecase.ForgotPasswordResult{}, nil
}

// ResetPassword redeems the recovery token hash from the email link and sets the new password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.BadRequest(domain.MsgInvalidResetLink)
	}

	var session sessionResponse
	verify := map[string]string{"type": "recovery", "token_hash": token}
	if err := c.do(ctx, http.MethodPost, "/verify", "", verify, &session); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return domain.BadRequest(domain.MsgResetLinkExpired)
		}
		return domain.Internal(err)
	}
	if session.AccessToken == "" {
		return domain.BadRequest(domain.MsgResetLinkExpired)
	}

	update := map[string]string{"password": newPassword}
	if err := c.do(ctx, http.MethodPut, "/user", session.AccessToken, update, nil); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.is("weak_password", "same_password") {
			return domain.Validation(apiErr.message())
		}
		return domain.Internal(err)
	}

	if session.User != nil {
		slog.Info("password reset completed", "user_id", session.User.ID)
	}
	return nil
}

func (c *Client) result(user *gotrueUser, token string, expiresIn int64) *usecase.AuthResult {
	res := &usecase.AuthResult{User: user.toEntity(), Token: token}
	if token != "" && expiresIn > 0 {
		res.ExpiresAt = c.now().Add(time.Duration(expiresIn) * time.Second)
	}
	return res
}

// do sends one JSON request. bearer defaults to the anon key.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gotrue: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("gotrue: build request: %w", err)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gotrue: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gotrue: decode response: %w", err)
	}
	return nil
}

func isAuthFailure(err error) bool {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden ||
		apiErr.is("bad_jwt", "session_not_found", "user_not_found")
}
