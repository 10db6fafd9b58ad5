package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// The lockout columns (LoginFailureCount, LastFailureAt) are only
// ever written by the lockout state machine, and RefreshToken holds
// the single live refresh token for the user — it is overwritten on
// every successful login or rotation and nulled on logout.
//
// Fields:
//  ID                – primary key identifier of the user.
//  Username          – unique login name.
//  Email             – unique email address.
//  PasswordHash      – bcrypt hashed password.
//  UseYn             – activation flag, "Y" (enabled) or "N" (disabled).
//  LoginFailureCount – consecutive failed login attempts (>= 0).
//  LastFailureAt     – timestamp of the most recent failure (nullable).
//  RefreshToken      – current refresh token, at most one live value (nullable).
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type User struct {
	ID                uint64     // users.id
	Username          string     // users.username
	Email             string     // users.email
	PasswordHash      string     // users.password_hash
	UseYn             string     // users.use_yn ("Y"/"N")
	LoginFailureCount int        // users.login_failure_count
	LastFailureAt     *time.Time // users.last_failure_at (nullable)
	RefreshToken      *string    // users.refresh_token (nullable)
	CreatedAt         time.Time  // users.created_at
	UpdatedAt         time.Time  // users.updated_at
}

// Enabled reports whether the account may log in at all.
func (u *User) Enabled() bool { return u.UseYn == "Y" }
