package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/auth-gateway/internal/model"
)

// UserRepo persists user records including the lockout counters and
// the single live refresh token per user.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,use_yn,login_failure_count,last_failure_at,refresh_token,created_at,updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u       model.User
		lastFal sql.NullTime
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.UseYn,
		&u.LoginFailureCount, &lastFal, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastFal.Valid {
		t := lastFal.Time
		u.LastFailureAt = &t
	}
	if refresh.Valid {
		s := refresh.String
		u.RefreshToken = &s
	}
	return &u, nil
}

// Create inserts a new enabled user with a zero failure count.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, use_yn, login_failure_count) VALUES (?,?,?,'Y',0)",
		username, email, passwordHash)
	if err != nil {
		// MySQL error 1062: duplicate key on username or email.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByUsername fetches a user by its unique username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// RecordLoginFailure increments the failure counter and stamps the
// failure time in a single write so concurrent attempts cannot
// interleave a half-updated pair.
func (r *UserRepo) RecordLoginFailure(ctx context.Context, username string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_failure_count=login_failure_count+1, last_failure_at=NOW() WHERE username=?",
		username)
	return err
}

// ResetLoginFailureCount zeroes the counter. The last failure
// timestamp is intentionally left in place.
func (r *UserRepo) ResetLoginFailureCount(ctx context.Context, username string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_failure_count=0 WHERE username=?", username)
	return err
}

// UpdateRefreshToken overwrites the stored refresh token. A nil token
// clears it (logout). The column is the sole source of truth for an
// active session, so this is always a full overwrite, never an append.
func (r *UserRepo) UpdateRefreshToken(ctx context.Context, username string, token *string) error {
	var v sql.NullString
	if token != nil {
		v = sql.NullString{String: *token, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE username=?", v, username)
	return err
}

// UpdateUseYn flips the activation flag ("Y"/"N").
func (r *UserRepo) UpdateUseYn(ctx context.Context, username, useYn string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET use_yn=? WHERE username=?", useYn, username)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AuthoritiesByUsername returns the role names granted to a user via
// the user_roles join. Resolved at login time as a pure read-time
// projection; role names are never stored redundantly on the user row.
func (r *UserRepo) AuthoritiesByUsername(ctx context.Context, username string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.role_name FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.role_id
		 WHERE ur.user_name = ?
		 ORDER BY r.role_name`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// UserWithRoles is the admin listing projection of a user.
type UserWithRoles struct {
	Username          string
	Email             string
	UseYn             string
	LoginFailureCount int
	Roles             []string
}

// ListWithRoles returns every user together with its role names,
// ordered by username. Used by the admin screens only.
func (r *UserRepo) ListWithRoles(ctx context.Context) ([]UserWithRoles, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT u.username, u.email, u.use_yn, u.login_failure_count, r.role_name
		 FROM users u
		 LEFT JOIN user_roles ur ON ur.user_name = u.username
		 LEFT JOIN roles r ON r.role_id = ur.role_id
		 ORDER BY u.username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out  []UserWithRoles
		last *UserWithRoles
	)
	for rows.Next() {
		var (
			uw   UserWithRoles
			role sql.NullString
		)
		if err := rows.Scan(&uw.Username, &uw.Email, &uw.UseYn, &uw.LoginFailureCount, &role); err != nil {
			return nil, err
		}
		if last == nil || last.Username != uw.Username {
			out = append(out, uw)
			last = &out[len(out)-1]
		}
		if role.Valid {
			last.Roles = append(last.Roles, role.String)
		}
	}
	return out, rows.Err()
}
