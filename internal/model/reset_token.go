package model

import "time"

// TokenTypePasswordReset is the only token type currently issued
// through the auth_tokens table.
const TokenTypePasswordReset = "PASSWORD_RESET"

// ResetToken models a row of the `auth_tokens` table: a single-use,
// expiring opaque token mailed to a user. At most one unused,
// unexpired token per (user, type) is meaningful — issuing a new one
// marks all older unused tokens of the same type as used.
//
// Fields:
//  Token     – random opaque token string (primary key).
//  Username  – owning user.
//  Type      – token type tag (TokenTypePasswordReset).
//  CreatedAt – issuance time.
//  ExpiryAt  – CreatedAt + 30 minutes.
//  Used      – whether the token has been consumed or superseded.
type ResetToken struct {
	Token     string    // auth_tokens.token
	Username  string    // auth_tokens.user_name
	Type      string    // auth_tokens.token_type
	CreatedAt time.Time // auth_tokens.created_at
	ExpiryAt  time.Time // auth_tokens.expiry_at
	Used      bool      // auth_tokens.used
}
