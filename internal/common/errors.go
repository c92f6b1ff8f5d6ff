// Package common defines shared constants and sentinel errors used across
// server and client layers of TaskKeeper. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorStorage      = errors.New("storage error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrInvalidCredentials is returned by login for an unknown email or a
	// wrong password; both cases look the same to the caller.
	ErrInvalidCredentials = errors.New("unable to login")

	// Auth errors. Each one wraps ErrorUnauthorized.
	ErrMissingToken   = fmt.Errorf("%w: missing token", ErrorUnauthorized)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrorUnauthorized)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrorUnauthorized)
	ErrUnknownUser    = fmt.Errorf("%w: unknown user", ErrorUnauthorized)
	ErrTokenRevoked   = fmt.Errorf("%w: revoked", ErrorUnauthorized)
)
