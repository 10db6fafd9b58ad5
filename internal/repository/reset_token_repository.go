package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/auth-gateway/internal/model"
)

// ResetTokenRepo persists single-use password-reset tokens in the
// auth_tokens table.
type ResetTokenRepo struct{ DB *sql.DB }

func NewResetTokenRepo(db *sql.DB) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

// FindByToken fetches a token row by its opaque string.
func (r *ResetTokenRepo) FindByToken(ctx context.Context, token string) (*model.ResetToken, error) {
	var t model.ResetToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT token, user_name, token_type, created_at, expiry_at, used FROM auth_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.Token, &t.Username, &t.Type, &t.CreatedAt, &t.ExpiryAt, &t.Used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateExclusive marks every unused token of the same (user, type)
// as used, inserts the new token, then invokes notify — all inside
// one transaction. If notify returns an error the whole issuance is
// rolled back, so a failed delivery never leaves a live orphan token.
func (r *ResetTokenRepo) CreateExclusive(ctx context.Context, t *model.ResetToken, notify func() error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE auth_tokens SET used=1 WHERE user_name=? AND token_type=? AND used=0",
		t.Username, t.Type); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO auth_tokens (token, user_name, token_type, created_at, expiry_at, used) VALUES (?,?,?,?,?,0)",
		t.Token, t.Username, t.Type, t.CreatedAt, t.ExpiryAt); err != nil {
		return err
	}
	if notify != nil {
		if err := notify(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Consume flips the used flag and writes the new password hash to
// the owning user in one atomic unit. A failure partway rolls both
// writes back.
func (r *ResetTokenRepo) Consume(ctx context.Context, token, username, newPasswordHash string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE username=?", newPasswordHash, username); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE auth_tokens SET used=1 WHERE token=? AND used=0", token)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConflict
	}
	return tx.Commit()
}
