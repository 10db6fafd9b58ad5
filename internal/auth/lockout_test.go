package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/auth-gateway/internal/auth"
	"github.com/iliyamo/auth-gateway/internal/model"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := &auth.Lockout{Now: func() time.Time { return now }}

	ts := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	cases := []struct {
		name   string
		user   model.User
		locked bool
	}{
		{"zero failures", model.User{LoginFailureCount: 0}, false},
		{"under threshold", model.User{LoginFailureCount: auth.MaxFailedAttempts - 1, LastFailureAt: ts(-time.Minute)}, false},
		{"at threshold inside window", model.User{LoginFailureCount: auth.MaxFailedAttempts, LastFailureAt: ts(-time.Minute)}, true},
		{"over threshold inside window", model.User{LoginFailureCount: 9, LastFailureAt: ts(-29 * time.Minute)}, true},
		{"window exactly elapsed", model.User{LoginFailureCount: auth.MaxFailedAttempts, LastFailureAt: ts(-auth.LockWindow)}, false},
		{"window long elapsed, counter unreset", model.User{LoginFailureCount: 12, LastFailureAt: ts(-2 * time.Hour)}, false},
		{"over threshold without timestamp", model.User{LoginFailureCount: auth.MaxFailedAttempts}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.locked, l.Evaluate(&tc.user))
		})
	}
}

func TestRecordFailureSkipsUnknownUsers(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	l := auth.NewLockout(users)
	ctx := context.Background()

	assert.Zero(t, l.RecordFailure(ctx, "ghost"))
	assert.Len(t, users.users, 1, "failures against unknown names must not persist anything")

	assert.Equal(t, 1, l.RecordFailure(ctx, "alice"), "returned count reflects the persisted row")
	assert.Equal(t, 1, users.users["alice"].LoginFailureCount)
	assert.NotNil(t, users.users["alice"].LastFailureAt)
}

func TestRecordSuccessKeepsLastFailureTimestamp(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	l := auth.NewLockout(users)
	ctx := context.Background()

	l.RecordFailure(ctx, "alice")
	stamp := users.users["alice"].LastFailureAt

	l.RecordSuccess(ctx, "alice")
	assert.Equal(t, 0, users.users["alice"].LoginFailureCount)
	assert.Equal(t, stamp, users.users["alice"].LastFailureAt)
}
