package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-gateway/internal/auth"
	"github.com/iliyamo/auth-gateway/internal/config"
	"github.com/iliyamo/auth-gateway/internal/middleware"
)

// refreshCookieName is the HTTP-only cookie carrying the refresh
// token. The token additionally travels outside the JSON payload so
// browser clients never have to persist it in script-visible storage.
const refreshCookieName = "X-Refresh-Token"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth *auth.Service
}

func NewAuthHandler(cfg config.Config, svc *auth.Service) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: svc}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resetRequestReq struct {
	Username string `json:"username"`
}
type resetConfirmReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
type tokenResp struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Cfg.RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteLaxMode,
	})
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register creates a new account. Username/email collisions answer 409.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Register(ctx, req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, auth.ErrUserAlreadyExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"username": req.Username})
}

// Login verifies credentials and returns the access token; the
// refresh token travels in an HTTP-only cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrBadCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or password"})
		case errors.Is(err, auth.ErrAccountLocked):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is locked, try again later"})
		case errors.Is(err, auth.ErrAccountDisabled):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is disabled, contact an administrator"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, tokenResp{Username: pair.Username, AccessToken: pair.AccessToken})
}

// Refresh rotates the refresh token and returns a new access token.
// The refresh token is read from the cookie, falling back to the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var raw string
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		raw = ck.Value
	} else {
		var req refreshReq
		_ = c.Bind(&req)
		raw = strings.TrimSpace(req.RefreshToken)
	}
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token expired"})
		case errors.Is(err, auth.ErrInvalidRefreshToken), errors.Is(err, auth.ErrRefreshMismatch):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, tokenResp{Username: pair.Username, AccessToken: pair.AccessToken})
}

// Logout clears the caller's stored refresh token (protected route).
func (h *AuthHandler) Logout(c echo.Context) error {
	username, _ := c.Get(middleware.ContextUsername).(string)
	if username == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, username); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RequestPasswordReset issues and mails a reset link.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	// Token write + mail delivery share one transaction; allow for
	// the mail API round trip.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if err := h.Auth.RequestPasswordReset(ctx, strings.TrimSpace(req.Username)); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no such user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sending reset mail failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset mail sent"})
}

// ValidateResetToken checks a reset link before the form is shown.
func (h *AuthHandler) ValidateResetToken(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ValidateResetToken(ctx, token); err != nil {
		return resetTokenError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "token is valid"})
}

// ConfirmPasswordReset consumes the token and stores the new password.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/new_password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return resetTokenError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func resetTokenError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid password reset link"})
	case errors.Is(err, auth.ErrTokenExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "password reset link expired"})
	case errors.Is(err, auth.ErrTokenAlreadyUsed):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "password reset link already used"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
}
