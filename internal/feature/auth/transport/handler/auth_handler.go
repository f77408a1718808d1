// Package handler provides the HTTP handlers of the auth feature.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"wandertrails_backend/internal/feature/auth/domain"
	"wandertrails_backend/internal/feature/auth/domain/entity"
	"wandertrails_backend/internal/feature/auth/transport/http/dto"
	"wandertrails_backend/internal/feature/auth/usecase"
	jwtmw "wandertrails_backend/internal/platform/jwt"
)

// AuthUsecase defines the auth operations the handler depends on.
// Following Go convention, the consumer (handler) defines the interface, not the provider.
type AuthUsecase interface {
	Signup(ctx context.Context, name, email, password string) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	GetSession(ctx context.Context, token string) (*entity.User, error)
	Logout(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) (*usecase.ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name string
	// Secure is set in production only.
	Secure bool
	// MaxAge is used when the issued token does not report its own expiry.
	MaxAge time.Duration
}

// AuthHandler handles HTTP requests for the auth endpoints.
type AuthHandler struct {
	auth           AuthUsecase
	cookie         CookieConfig
	exposeResetURL bool
	now            func() time.Time
}

// NewAuthHandler creates a new instance of AuthHandler.
func NewAuthHandler(auth AuthUsecase, cookie CookieConfig, exposeResetURL bool) *AuthHandler {
	return &AuthHandler{
		auth:           auth,
		cookie:         cookie,
		exposeResetURL: exposeResetURL,
		now:            time.Now,
	}
}

// Signup handles POST /auth/signup.
// On success it sets the session cookie and returns 201 with the public user.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("signup validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validationMessage(err)})
		return
	}

	res, err := h.auth.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, "signup failed", err, "email", req.Email)
		return
	}

	h.setSessionCookie(c, res)
	slog.Info("user signup successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.UserResponse{User: res.User.Public()})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validationMessage(err)})
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, "login failed", err, "email", req.Email)
		return
	}

	h.setSessionCookie(c, res)
	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.UserResponse{User: res.User.Public()})
}

// Logout handles POST /auth/logout. It always clears the cookie and returns 204.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := jwtmw.ExtractToken(c, h.cookie.Name); token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			slog.Error("session revocation failed", "error", err, "remote_addr", c.ClientIP())
		}
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me. It must run behind jwtmw.TokenRequired.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.GetSession(c.Request.Context(), jwtmw.TokenFrom(c))
	if err != nil {
		h.writeError(c, "session lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{User: user.Public()})
}

// ForgotPassword handles POST /auth/forgot-password.
// The response is {"ok": true} whether or not the email has an account.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validationMessage(err)})
		return
	}

	res, err := h.auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, "forgot password failed", err)
		return
	}

	body := dto.ForgotPasswordResponse{OK: true}
	if h.exposeResetURL && res != nil {
		body.ResetURL = res.ResetURL
	}
	c.JSON(http.StatusOK, body)
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validationMessage(err)})
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.writeError(c, "reset password failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, res *usecase.AuthResult) {
	if res.Token == "" {
		return
	}
	maxAge := h.cookie.MaxAge
	if !res.ExpiresAt.IsZero() {
		maxAge = res.ExpiresAt.Sub(h.now())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, res.Token, int(maxAge/time.Second), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

// writeError maps an auth error to its status code. Unknown errors become a generic 500.
func (h *AuthHandler) writeError(c *gin.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err, "remote_addr", c.ClientIP())

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Kind == domain.KindInternal {
		slog.Error(msg, attrs...)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: domain.MsgServerError})
		return
	}

	slog.Warn(msg, attrs...)
	c.JSON(statusFor(authErr.Kind), dto.ErrorResponse{Error: authErr.Message})
}

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindValidation, domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// validationMessage returns a user-facing message for the first failed rule.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.MsgInvalidRequest
	}

	fe := verrs[0]
	switch {
	case fe.Field() == "Name" && (fe.Tag() == "required" || fe.Tag() == "min"):
		return "Name is required"
	case fe.Field() == "Password" && fe.Tag() == "min":
		return "Password must be at least 8 characters"
	case fe.Tag() == "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case fe.Tag() == "email":
		return "Invalid email"
	case fe.Tag() == "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return domain.MsgInvalidRequest
	}
}
