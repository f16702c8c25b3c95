package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvariantViolation is returned when a mutation would break a
	// position invariant (e.g. remaining size going negative). Workers
	// treat it as fatal for the current task.
	ErrInvariantViolation = errors.New("invariant violation")
)
