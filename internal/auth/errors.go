// Package auth implements the credential-verification state machine,
// the token lifecycle and the password-reset flow. Handlers translate
// the sentinel errors below into HTTP statuses; none of them should
// ever crash the process.
package auth

import "errors"

var (
	// ErrBadCredentials covers both unknown usernames and wrong
	// passwords. The two cases are deliberately collapsed so callers
	// cannot enumerate valid usernames.
	ErrBadCredentials = errors.New("invalid username or password")

	// ErrAccountLocked is returned while the lock window is active.
	ErrAccountLocked = errors.New("account is locked")

	// ErrAccountDisabled is returned for a deactivated account.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrInvalidRefreshToken is returned when a refresh token fails
	// signature or structural validation.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrExpiredToken is returned when a token is well-formed and
	// correctly signed but past its expiry, so clients can be hinted
	// to refresh instead of re-authenticating.
	ErrExpiredToken = errors.New("token expired")

	// ErrInvalidToken is returned for any other parse/signature failure.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRefreshMismatch is returned when a presented refresh token
	// differs from the one currently stored for the user — a replayed
	// or superseded token. Unrecoverable; forces re-login.
	ErrRefreshMismatch = errors.New("refresh token mismatch")

	// ErrTokenNotFound is returned when no reset token row matches.
	ErrTokenNotFound = errors.New("reset token not found")

	// ErrTokenAlreadyUsed is returned for a consumed, superseded or
	// wrong-type reset token.
	ErrTokenAlreadyUsed = errors.New("reset token already used")

	// ErrTokenExpired is returned for a reset token past its expiry.
	ErrTokenExpired = errors.New("reset token expired")

	// ErrUserAlreadyExists is returned when registration collides
	// with an existing username or email.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserNotFound is returned by flows that may disclose
	// existence, such as the password-reset request.
	ErrUserNotFound = errors.New("user not found")
)
