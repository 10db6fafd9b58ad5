package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-gateway/internal/auth"
	"github.com/iliyamo/auth-gateway/internal/middleware"
)

const testSecret = "middleware-test-secret"

func issueToken(t *testing.T, username string, roles []string) string {
	t.Helper()
	svc := auth.NewTokenService(testSecret, 15*time.Minute, time.Hour)
	tok, err := svc.IssueAccessToken(username, roles)
	require.NoError(t, err)
	return tok
}

func protectedEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/v1/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"username": c.Get(middleware.ContextUsername),
			"roles":    c.Get(middleware.ContextRoles),
		})
	}, mw...)
	return e
}

func authedGet(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
	e := protectedEcho(middleware.JWTAuth(testSecret))
	tok := issueToken(t, "alice", []string{"USER", "ADMIN"})

	rec := authedGet(e, "Bearer "+tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.Contains(t, rec.Body.String(), `"ADMIN"`)
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	e := protectedEcho(middleware.JWTAuth(testSecret))

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + func() string {
			svc := auth.NewTokenService("some-other-secret", time.Minute, time.Hour)
			tok, _ := svc.IssueAccessToken("alice", nil)
			return tok
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := authedGet(e, tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	svc := auth.NewTokenService(testSecret, time.Minute, time.Hour)
	svc.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := svc.IssueAccessToken("alice", nil)
	require.NoError(t, err)

	e := protectedEcho(middleware.JWTAuth(testSecret))
	rec := authedGet(e, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := protectedEcho(middleware.JWTAuth(testSecret), middleware.RequireRole("ADMIN"))

	admin := authedGet(e, "Bearer "+issueToken(t, "root", []string{"ADMIN"}))
	assert.Equal(t, http.StatusOK, admin.Code)

	user := authedGet(e, "Bearer "+issueToken(t, "alice", []string{"USER"}))
	assert.Equal(t, http.StatusForbidden, user.Code)

	none := authedGet(e, "Bearer "+issueToken(t, "bob", nil))
	assert.Equal(t, http.StatusForbidden, none.Code)
}
