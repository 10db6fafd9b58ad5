// Package queue defines message payloads exchanged over the message broker.
package queue

// AuthEvent kinds published to the auth.audit queue.
const (
	EventLoginSucceeded        = "login_succeeded"
	EventLoginFailed           = "login_failed"
	EventAccountLocked         = "account_locked"
	EventPasswordResetRequest  = "password_reset_requested"
	EventPasswordResetComplete = "password_reset_completed"
)

// AuthEvent is published after authentication state changes. It
// carries enough information for downstream consumers to log, alert
// or feed analytics without querying the primary database. Tokens and
// password material are never included.
type AuthEvent struct {
	Kind         string `json:"kind"`
	Username     string `json:"username"`
	FailureCount int    `json:"failure_count,omitempty"`
	Detail       string `json:"detail,omitempty"`
	At           string `json:"at"` // RFC3339 UTC
}
