package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/auth-gateway/internal/mail"
	"github.com/iliyamo/auth-gateway/internal/model"
	"github.com/iliyamo/auth-gateway/internal/queue"
	"github.com/iliyamo/auth-gateway/internal/repository"

	"github.com/google/uuid"
)

// resetTokenTTL is how long a password-reset link stays valid.
const resetTokenTTL = 30 * time.Minute

// UserStore is the slice of user persistence the auth flows need.
// Implemented by repository.UserRepo; stubbed in tests.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, username, email, passwordHash string) error
	RecordLoginFailure(ctx context.Context, username string) error
	ResetLoginFailureCount(ctx context.Context, username string) error
	UpdateRefreshToken(ctx context.Context, username string, token *string) error
	AuthoritiesByUsername(ctx context.Context, username string) ([]string, error)
}

// ResetTokenStore persists single-use reset tokens. Implemented by
// repository.ResetTokenRepo.
type ResetTokenStore interface {
	FindByToken(ctx context.Context, token string) (*model.ResetToken, error)
	CreateExclusive(ctx context.Context, t *model.ResetToken, notify func() error) error
	Consume(ctx context.Context, token, username, newPasswordHash string) error
}

// EventPublisher pushes audit events to the broker. May be nil, in
// which case events are dropped silently; publishing is always
// best-effort and never fails a request.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, ev queue.AuthEvent) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	Username     string
	AccessToken  string
	RefreshToken string
}

// Service composes the lockout state machine, the token service and
// the ledgers into the login, logout, refresh and password-reset use
// cases. It is the only component with cross-cutting transaction
// boundaries.
type Service struct {
	Users      UserStore
	Resets     ResetTokenStore
	Tokens     *TokenService
	Lockout    *Lockout
	Mailer     mail.Mailer
	Events     EventPublisher
	BaseURL    string // base URL embedded in reset links
	MailFrom   string
	BcryptCost int
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) publish(ctx context.Context, kind, username string, failureCount int, detail string) {
	if s.Events == nil {
		return
	}
	ev := queue.AuthEvent{
		Kind:         kind,
		Username:     username,
		FailureCount: failureCount,
		Detail:       detail,
		At:           s.now().Format(time.RFC3339),
	}
	if err := s.Events.PublishAuthEvent(ctx, ev); err != nil {
		log.Printf("auth: publish %s event: %v", kind, err)
	}
}

// Register creates a new enabled user. Username and email collisions
// both surface as ErrUserAlreadyExists.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Users.Create(ctx, username, email, string(hash)); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

// Login verifies credentials and account state, then issues a fresh
// access/refresh pair and persists the refresh token as the single
// live session value.
//
// Transition table:
//   unknown user or wrong password -> failure recorded, ErrBadCredentials
//   locked (over threshold, inside window) -> failure recorded, ErrAccountLocked
//   disabled -> ErrAccountDisabled, counter untouched
//   all checks pass -> counter reset, token pair returned
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	u, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same external answer as a wrong password; the failure is
			// only logged, never persisted for unknown names.
			s.Lockout.RecordFailure(ctx, username)
			s.publish(ctx, queue.EventLoginFailed, username, 0, "unknown user")
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	// Account-status checks run before the password is verified,
	// so an attempt against a locked account refreshes the lock
	// window regardless of the credentials supplied.
	if s.Lockout.Evaluate(u) {
		count := s.Lockout.RecordFailure(ctx, username)
		s.publish(ctx, queue.EventAccountLocked, username, count, "")
		return nil, ErrAccountLocked
	}
	if !u.Enabled() {
		return nil, ErrAccountDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		count := s.Lockout.RecordFailure(ctx, username)
		kind := queue.EventLoginFailed
		if count >= MaxFailedAttempts {
			kind = queue.EventAccountLocked
		}
		s.publish(ctx, kind, username, count, "wrong password")
		return nil, ErrBadCredentials
	}

	s.Lockout.RecordSuccess(ctx, username)

	roles, err := s.Users.AuthoritiesByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	pair, err := s.issuePair(ctx, username, roles)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventLoginSucceeded, username, 0, "")
	return pair, nil
}

// Refresh exchanges a valid, currently-stored refresh token for a new
// access/refresh pair and rotates the ledger. Any divergence between
// the presented token and the stored one means replay or supersession
// and forces re-login.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := s.Tokens.Validate(refreshToken); err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidRefreshToken
	}
	username, err := s.Tokens.Username(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	u, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if u.RefreshToken == nil || *u.RefreshToken != refreshToken {
		return nil, ErrRefreshMismatch
	}

	roles, err := s.Users.AuthoritiesByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, username, roles)
}

// issuePair mints both tokens and overwrites the stored refresh token
// in a single write.
func (s *Service) issuePair(ctx context.Context, username string, roles []string) (*TokenPair, error) {
	access, err := s.Tokens.IssueAccessToken(username, roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.IssueRefreshToken(username)
	if err != nil {
		return nil, err
	}
	if err := s.Users.UpdateRefreshToken(ctx, username, &refresh); err != nil {
		return nil, err
	}
	return &TokenPair{Username: username, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout clears the stored refresh token, unconditionally invalidating
// any outstanding session. Idempotent.
func (s *Service) Logout(ctx context.Context, username string) error {
	return s.Users.UpdateRefreshToken(ctx, username, nil)
}

// RequestPasswordReset issues a fresh single-use token, superseding
// any prior unused ones, and mails the reset link. Token creation and
// delivery succeed or fail together.
func (s *Service) RequestPasswordReset(ctx context.Context, username string) error {
	u, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	now := s.now()
	t := &model.ResetToken{
		Token:     uuid.NewString(),
		Username:  u.Username,
		Type:      model.TokenTypePasswordReset,
		CreatedAt: now,
		ExpiryAt:  now.Add(resetTokenTTL),
	}

	err = s.Resets.CreateExclusive(ctx, t, func() error {
		link := fmt.Sprintf("%s/reset-password?token=%s", s.BaseURL, t.Token)
		return s.Mailer.SendMail(&mail.Email{
			From:    s.MailFrom,
			To:      []string{u.Email},
			Subject: "Password reset link",
			Body: "Click the following link to reset your password: " + link +
				"\n\nThe link is valid for 30 minutes.",
		})
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.EventPasswordResetRequest, u.Username, 0, "")
	return nil
}

// ValidateResetToken checks a token without consuming it, so the
// front end can verify a link before showing the form.
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	_, err := s.checkResetToken(ctx, token)
	return err
}

// ResetPassword consumes a valid token and writes the new password
// hash; both writes happen in one atomic unit inside the store.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	t, err := s.checkResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Resets.Consume(ctx, t.Token, t.Username, string(hash)); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Raced with another consume of the same token.
			return ErrTokenAlreadyUsed
		}
		return err
	}
	s.publish(ctx, queue.EventPasswordResetComplete, t.Username, 0, "")
	return nil
}

func (s *Service) checkResetToken(ctx context.Context, token string) (*model.ResetToken, error) {
	t, err := s.Resets.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if t.Type != model.TokenTypePasswordReset || t.Used {
		return nil, ErrTokenAlreadyUsed
	}
	if !s.now().Before(t.ExpiryAt) {
		return nil, ErrTokenExpired
	}
	return t, nil
}
