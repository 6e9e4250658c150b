// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotFoundOrForbidden conflates "does not exist" with "not owned by the
	// caller" so a response never reveals which one it was.
	ErrNotFoundOrForbidden = errors.New("not found or forbidden")

	// ErrUnauthorized indicates a missing, expired, or wrong-channel token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrQuotaExceeded indicates the account reached its flock quota.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrResourceExhausted indicates no free key slot remains in a flock.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrSizeInvalid indicates a payload of unacceptable length.
	ErrSizeInvalid = errors.New("invalid size")

	// ErrNotEstablished indicates a bilateral trust link is missing a direction.
	ErrNotEstablished = errors.New("trust link not established")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")
)
