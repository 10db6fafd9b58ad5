package auth

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/auth-gateway/internal/model"
)

// Brute-force lockout policy.
const (
	// MaxFailedAttempts is the failure count at which an account
	// becomes lockable.
	MaxFailedAttempts = 5
	// LockWindow is how long an over-threshold account stays locked
	// after its most recent failure.
	LockWindow = 30 * time.Minute
)

// Lockout computes whether an account is currently locked from the
// stored failure counter and last-failure timestamp, and updates the
// counters on success and failure. The counter is reset only by a
// verified successful authentication: once the window elapses the
// account is usable again but stays one failure away from re-locking.
type Lockout struct {
	Users UserStore
	Now   func() time.Time // overridable for tests; defaults to time.Now
}

func NewLockout(users UserStore) *Lockout {
	return &Lockout{Users: users, Now: time.Now}
}

func (l *Lockout) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Evaluate reports whether the user is locked right now. Pure: no
// storage writes happen here.
func (l *Lockout) Evaluate(u *model.User) bool {
	if u.LoginFailureCount < MaxFailedAttempts {
		return false
	}
	// Over threshold without a timestamp should not happen; treat as
	// unlocked rather than locking the account forever.
	if u.LastFailureAt == nil {
		return false
	}
	return l.now().Sub(*u.LastFailureAt) < LockWindow
}

// RecordFailure increments the stored counter and refreshes the
// failure timestamp, then returns the counter value as persisted.
// The count is re-read after the write because the increment happens
// in SQL; a concurrent attempt may have moved it past the value the
// caller fetched. Failures against unknown usernames are logged but
// not persisted, so storage side effects cannot leak whether a
// username exists; the caller still answers identically either way.
func (l *Lockout) RecordFailure(ctx context.Context, username string) int {
	if _, err := l.Users.FindByUsername(ctx, username); err != nil {
		log.Printf("auth: login failure for unknown user %q", username)
		return 0
	}
	if err := l.Users.RecordLoginFailure(ctx, username); err != nil {
		log.Printf("auth: record login failure for %q: %v", username, err)
		return 0
	}
	u, err := l.Users.FindByUsername(ctx, username)
	if err != nil {
		log.Printf("auth: reload failure count for %q: %v", username, err)
		return 0
	}
	return u.LoginFailureCount
}

// RecordSuccess resets the failure counter to zero. The last-failure
// timestamp is left untouched.
func (l *Lockout) RecordSuccess(ctx context.Context, username string) {
	if err := l.Users.ResetLoginFailureCount(ctx, username); err != nil {
		log.Printf("auth: reset login failures for %q: %v", username, err)
	}
}
