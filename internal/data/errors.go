package data

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("data: not found")

	// ErrDuplicateSlug is returned when an insert or update violates the
	// unique slug constraint. The service layer pre-checks slugs, but the
	// check-then-write window means the constraint can still fire.
	ErrDuplicateSlug = errors.New("data: slug already in use")

	// ErrUnavailable is returned by optional store capabilities (such as
	// server-side full-text search) that the configured driver does not
	// provide. Callers degrade to their fallback path.
	ErrUnavailable = errors.New("data: capability unavailable")
)
