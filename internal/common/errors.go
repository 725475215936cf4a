// Package common defines shared constants and sentinel errors used across
// the storefront client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository/cache-level errors.
	ErrorNotFound = errors.New("not found")

	// Session and gate errors.
	ErrNotAuthenticated = errors.New("not authenticated")

	// Token errors (malformed or missing bearer/flow token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenMissing = errors.New("token missing")
)
