// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios without inspecting driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Services map
// it onto their own taxonomy (e.g. bad credentials, token not found).
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique
// constraint, such as registering an already-taken username or
// email. Handlers should translate this into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate entry")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a role that is still mapped to users. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
