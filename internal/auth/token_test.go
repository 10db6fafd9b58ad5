package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-gateway/internal/auth"
)

func newTokenService() *auth.TokenService {
	return auth.NewTokenService("test-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTokenService()

	tok, err := svc.IssueAccessToken("alice", []string{"ADMIN", "USER"})
	require.NoError(t, err)

	require.NoError(t, svc.Validate(tok))

	username, err := svc.Username(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	roles, err := svc.Roles(tok)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN", "USER"}, roles)
}

func TestExpiredTokenIsDistinguished(t *testing.T) {
	svc := newTokenService()

	// Issue in the past, then validate against the real clock.
	svc.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := svc.IssueAccessToken("alice", nil)
	require.NoError(t, err)

	svc.Now = time.Now
	err = svc.Validate(tok)
	require.ErrorIs(t, err, auth.ErrExpiredToken)

	_, err = svc.Username(tok)
	require.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestTamperedTokenIsInvalid(t *testing.T) {
	svc := newTokenService()
	other := auth.NewTokenService("other-secret", 15*time.Minute, 7*24*time.Hour)

	tok, err := svc.IssueAccessToken("alice", nil)
	require.NoError(t, err)

	require.ErrorIs(t, other.Validate(tok), auth.ErrInvalidToken)
	require.ErrorIs(t, svc.Validate("not-a-jwt"), auth.ErrInvalidToken)
}

func TestRefreshTokensNeverBitIdentical(t *testing.T) {
	svc := newTokenService()

	// Freeze the clock so iat/exp are identical; only the nonce differs.
	frozen := time.Now()
	svc.Now = func() time.Time { return frozen }

	a, err := svc.IssueRefreshToken("alice")
	require.NoError(t, err)
	b, err := svc.IssueRefreshToken("alice")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	require.NoError(t, svc.Validate(a))
	require.NoError(t, svc.Validate(b))
}
