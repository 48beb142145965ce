package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrAccountLocked is returned while an account's lockout window is active.
	// Only the login endpoint may surface it to the client; everywhere else it
	// collapses into ErrUnauthorized.
	ErrAccountLocked = errors.New("account is temporarily locked")
)
