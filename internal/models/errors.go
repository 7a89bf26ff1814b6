package models

import "errors"

var (
	// ErrNotFound covers expected lookup misses: unknown codes, unlinked
	// accounts. User-facing replies stay generic so valid codes cannot be
	// enumerated.
	ErrNotFound = errors.New("not found")

	// ErrConflict is a generated code colliding with an outstanding one.
	// The registry retries generation; callers never see this.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable means the durable store could not be reached. The
	// in-memory registry is left untouched and the caller may retry.
	ErrUnavailable = errors.New("storage unavailable")

	ErrInvalidArgument = errors.New("invalid argument")
)
