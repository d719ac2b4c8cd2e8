package domain

import "errors"

var (
	// ErrDuplicateEvent is returned when a batch insert hits an existing event identifier
	ErrDuplicateEvent = errors.New("duplicate event identifier")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when creating a user that already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrAPIKeyNotFound is returned when an API key lookup finds nothing
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrAPIKeyInvalid is returned when a presented API key does not match an active key
	ErrAPIKeyInvalid = errors.New("invalid api key")

	// ErrAPIKeyExpired is returned when a presented API key is past its expiry
	ErrAPIKeyExpired = errors.New("api key has expired")

	// ErrPermissionDenied is returned when a caller lacks a required capability
	ErrPermissionDenied = errors.New("permission denied")
)
