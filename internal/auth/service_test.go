package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/auth-gateway/internal/auth"
	"github.com/iliyamo/auth-gateway/internal/mail"
	"github.com/iliyamo/auth-gateway/internal/model"
	"github.com/iliyamo/auth-gateway/internal/queue"
	"github.com/iliyamo/auth-gateway/internal/repository"
)

// ----- stub stores -----

type stubUserStore struct {
	users map[string]*model.User
	roles map[string][]string
	now   func() time.Time
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		users: map[string]*model.User{},
		roles: map[string][]string{},
		now:   time.Now,
	}
}

func (s *stubUserStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUserStore) Create(_ context.Context, username, email, passwordHash string) error {
	if _, ok := s.users[username]; ok {
		return repository.ErrDuplicate
	}
	for _, u := range s.users {
		if u.Email == email {
			return repository.ErrDuplicate
		}
	}
	s.users[username] = &model.User{Username: username, Email: email, PasswordHash: passwordHash, UseYn: "Y"}
	return nil
}

func (s *stubUserStore) RecordLoginFailure(_ context.Context, username string) error {
	u, ok := s.users[username]
	if !ok {
		return nil
	}
	u.LoginFailureCount++
	t := s.now()
	u.LastFailureAt = &t
	return nil
}

func (s *stubUserStore) ResetLoginFailureCount(_ context.Context, username string) error {
	if u, ok := s.users[username]; ok {
		u.LoginFailureCount = 0
	}
	return nil
}

func (s *stubUserStore) UpdateRefreshToken(_ context.Context, username string, token *string) error {
	u, ok := s.users[username]
	if !ok {
		return nil
	}
	if token == nil {
		u.RefreshToken = nil
		return nil
	}
	v := *token
	u.RefreshToken = &v
	return nil
}

func (s *stubUserStore) AuthoritiesByUsername(_ context.Context, username string) ([]string, error) {
	return s.roles[username], nil
}

type stubResetStore struct {
	tokens map[string]*model.ResetToken
	users  *stubUserStore
}

func newStubResetStore(users *stubUserStore) *stubResetStore {
	return &stubResetStore{tokens: map[string]*model.ResetToken{}, users: users}
}

func (s *stubResetStore) FindByToken(_ context.Context, token string) (*model.ResetToken, error) {
	t, ok := s.tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *stubResetStore) CreateExclusive(_ context.Context, t *model.ResetToken, notify func() error) error {
	// Mirror the SQL transaction: nothing is visible unless notify succeeds.
	if notify != nil {
		if err := notify(); err != nil {
			return err
		}
	}
	for _, old := range s.tokens {
		if old.Username == t.Username && old.Type == t.Type && !old.Used {
			old.Used = true
		}
	}
	cp := *t
	s.tokens[t.Token] = &cp
	return nil
}

func (s *stubResetStore) Consume(_ context.Context, token, username, newPasswordHash string) error {
	t, ok := s.tokens[token]
	if !ok || t.Used {
		return repository.ErrConflict
	}
	if u, ok := s.users.users[username]; ok {
		u.PasswordHash = newPasswordHash
	}
	t.Used = true
	return nil
}

type stubMailer struct {
	sent []mail.Email
	err  error
}

func (m *stubMailer) SendMail(e *mail.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, *e)
	return nil
}

type stubPublisher struct {
	events []queue.AuthEvent
}

func (p *stubPublisher) PublishAuthEvent(_ context.Context, ev queue.AuthEvent) error {
	p.events = append(p.events, ev)
	return nil
}

// ----- fixtures -----

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestService(t *testing.T, users *stubUserStore) (*auth.Service, *stubResetStore, *stubMailer) {
	t.Helper()
	resets := newStubResetStore(users)
	mailer := &stubMailer{}
	svc := &auth.Service{
		Users:      users,
		Resets:     resets,
		Tokens:     auth.NewTokenService("test-secret", 15*time.Minute, 7*24*time.Hour),
		Lockout:    auth.NewLockout(users),
		Mailer:     mailer,
		BaseURL:    "http://localhost:3000",
		MailFrom:   "noreply@example.com",
		BcryptCost: bcrypt.MinCost,
	}
	return svc, resets, mailer
}

func addUser(t *testing.T, users *stubUserStore, username, password string, roles ...string) {
	t.Helper()
	users.users[username] = &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hashFor(t, password),
		UseYn:        "Y",
	}
	users.roles[username] = roles
}

// ----- login & lockout -----

func TestLoginSuccessReturnsDistinctTokenPair(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret", "USER")
	svc, _, _ := newTestService(t, users)

	pair, err := svc.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", pair.Username)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	// The ledger now holds exactly the issued refresh token.
	require.NotNil(t, users.users["alice"].RefreshToken)
	assert.Equal(t, pair.RefreshToken, *users.users["alice"].RefreshToken)

	// Access token carries the role claims.
	roles, err := svc.Tokens.Roles(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, roles)
}

func TestLoginUnknownUserAnswersBadCredentials(t *testing.T) {
	users := newStubUserStore()
	svc, _, _ := newTestService(t, users)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	require.ErrorIs(t, err, auth.ErrBadCredentials)
	// No counter row is created for unknown names.
	assert.Empty(t, users.users)
}

func TestLoginWrongPasswordIncrementsCounter(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, _, _ := newTestService(t, users)

	_, err := svc.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, auth.ErrBadCredentials)
	assert.Equal(t, 1, users.users["alice"].LoginFailureCount)
	assert.NotNil(t, users.users["alice"].LastFailureAt)
}

func TestSixthAttemptLocksRegardlessOfPassword(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, _, _ := newTestService(t, users)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, auth.ErrBadCredentials)
	}

	// Sixth attempt with the correct password still answers locked
	// and keeps counting: the window is refreshed, not reset.
	_, err := svc.Login(ctx, "alice", "secret")
	require.ErrorIs(t, err, auth.ErrAccountLocked)
	assert.Equal(t, 6, users.users["alice"].LoginFailureCount)

	_, err = svc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, auth.ErrAccountLocked)
	assert.Equal(t, 7, users.users["alice"].LoginFailureCount)
}

func TestElapsedWindowUnlocksButDoesNotReset(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, _, _ := newTestService(t, users)
	ctx := context.Background()

	past := time.Now().Add(-auth.LockWindow - time.Minute)
	users.users["alice"].LoginFailureCount = auth.MaxFailedAttempts
	users.users["alice"].LastFailureAt = &past

	// Correct credentials after the window: success, counter reset.
	pair, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, 0, users.users["alice"].LoginFailureCount)
}

func TestElapsedWindowRelocksOnSingleFailure(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, _, _ := newTestService(t, users)
	ctx := context.Background()

	past := time.Now().Add(-auth.LockWindow - time.Minute)
	users.users["alice"].LoginFailureCount = auth.MaxFailedAttempts
	users.users["alice"].LastFailureAt = &past

	// One wrong password re-arms the lock immediately.
	_, err := svc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, auth.ErrBadCredentials)
	assert.Equal(t, auth.MaxFailedAttempts+1, users.users["alice"].LoginFailureCount)

	_, err = svc.Login(ctx, "alice", "secret")
	require.ErrorIs(t, err, auth.ErrAccountLocked)
}

func TestDisabledAccountLeavesCounterAlone(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	users.users["alice"].UseYn = "N"
	svc, _, _ := newTestService(t, users)

	_, err := svc.Login(context.Background(), "alice", "secret")
	require.ErrorIs(t, err, auth.ErrAccountDisabled)
	assert.Equal(t, 0, users.users["alice"].LoginFailureCount)
}

// ----- refresh rotation -----

func TestRefreshRotatesAndDetectsReplay(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret", "USER")
	svc, _, _ := newTestService(t, users)
	ctx := context.Background()

	pair1, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	pair2, err := svc.Refresh(ctx, pair1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair1.RefreshToken, pair2.RefreshToken)

	// Replaying the superseded token is unrecoverable.
	_, err = svc.Refresh(ctx, pair1.RefreshToken)
	require.ErrorIs(t, err, auth.ErrRefreshMismatch)

	// The rotated token still works.
	_, err = svc.Refresh(ctx, pair2.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsGarbageAndExpiredTokens(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, _, _ := newTestService(t, users)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, auth.ErrInvalidRefreshToken)

	svc.Tokens.Now = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }
	old, err := svc.Tokens.IssueRefreshToken("alice")
	require.NoError(t, err)
	svc.Tokens.Now = time.Now

	_, err = svc.Refresh(ctx, old)
	require.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestLogoutInvalidatesOutstandingRefreshToken(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, _, _ := newTestService(t, users)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "alice"))
	assert.Nil(t, users.users["alice"].RefreshToken)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrRefreshMismatch)

	// Idempotent.
	require.NoError(t, svc.Logout(ctx, "alice"))
}

// ----- password reset -----

func TestPasswordResetFlow(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, resets, mailer := newTestService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice"))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, mailer.sent[0].To)

	var token string
	for k := range resets.tokens {
		token = k
	}
	require.NotEmpty(t, token)
	assert.Contains(t, mailer.sent[0].Body, token)

	require.NoError(t, svc.ValidateResetToken(ctx, token))
	require.NoError(t, svc.ResetPassword(ctx, token, "brand-new"))

	// New password works, old one does not.
	_, err := svc.Login(ctx, "alice", "brand-new")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice", "secret")
	require.ErrorIs(t, err, auth.ErrBadCredentials)

	// Single use.
	err = svc.ResetPassword(ctx, token, "another")
	require.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)
}

func TestSecondResetRequestSupersedesFirstToken(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, resets, mailer := newTestService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice"))
	var first string
	for k := range resets.tokens {
		first = k
	}

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice"))
	require.Len(t, mailer.sent, 2)

	err := svc.ResetPassword(ctx, first, "whatever")
	require.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)

	var second string
	for k, tok := range resets.tokens {
		if !tok.Used {
			second = k
		}
	}
	require.NotEmpty(t, second)
	require.NoError(t, svc.ResetPassword(ctx, second, "whatever"))
}

func TestExpiredResetTokenAnswersTokenExpired(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, resets, _ := newTestService(t, users)
	ctx := context.Background()

	resets.tokens["stale"] = &model.ResetToken{
		Token:     "stale",
		Username:  "alice",
		Type:      model.TokenTypePasswordReset,
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiryAt:  time.Now().Add(-30 * time.Minute),
	}

	require.ErrorIs(t, svc.ValidateResetToken(ctx, "stale"), auth.ErrTokenExpired)
	require.ErrorIs(t, svc.ResetPassword(ctx, "stale", "x"), auth.ErrTokenExpired)
}

func TestResetRequestForUnknownUser(t *testing.T) {
	users := newStubUserStore()
	svc, _, mailer := newTestService(t, users)

	err := svc.RequestPasswordReset(context.Background(), "nobody")
	require.ErrorIs(t, err, auth.ErrUserNotFound)
	assert.Empty(t, mailer.sent)
}

func TestUnknownResetTokenAnswersNotFound(t *testing.T) {
	users := newStubUserStore()
	svc, _, _ := newTestService(t, users)

	require.ErrorIs(t, svc.ValidateResetToken(context.Background(), "missing"), auth.ErrTokenNotFound)
}

func TestMailFailureRollsBackTokenIssuance(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, resets, mailer := newTestService(t, users)
	mailer.err = errors.New("smtp down")

	err := svc.RequestPasswordReset(context.Background(), "alice")
	require.Error(t, err)
	assert.Empty(t, resets.tokens, "no orphaned valid token may survive a failed delivery")
}

// ----- registration -----

func TestRegisterAndDuplicate(t *testing.T) {
	users := newStubUserStore()
	svc, _, _ := newTestService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bob", "bob@example.com", "pw"))
	_, err := svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)

	err = svc.Register(ctx, "bob", "other@example.com", "pw")
	require.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	err = svc.Register(ctx, "bobby", "bob@example.com", "pw")
	require.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}

// ----- audit events -----

func TestAuditEventsCarryPersistedFailureCount(t *testing.T) {
	users := newStubUserStore()
	addUser(t, users, "alice", "secret")
	svc, _, _ := newTestService(t, users)
	events := &stubPublisher{}
	svc.Events = events
	ctx := context.Background()

	for i := 0; i < auth.MaxFailedAttempts; i++ {
		_, err := svc.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, auth.ErrBadCredentials)
	}
	require.Len(t, events.events, auth.MaxFailedAttempts)
	for i, ev := range events.events {
		assert.Equal(t, i+1, ev.FailureCount)
	}
	assert.Equal(t, queue.EventAccountLocked, events.events[auth.MaxFailedAttempts-1].Kind)

	// The next attempt hits the locked branch. Its event must report
	// the counter as stored after the write, matching the ledger even
	// when the row moved between fetch and increment.
	_, err := svc.Login(ctx, "alice", "secret")
	require.ErrorIs(t, err, auth.ErrAccountLocked)

	last := events.events[len(events.events)-1]
	assert.Equal(t, queue.EventAccountLocked, last.Kind)
	assert.Equal(t, auth.MaxFailedAttempts+1, last.FailureCount)
	assert.Equal(t, users.users["alice"].LoginFailureCount, last.FailureCount)
}
