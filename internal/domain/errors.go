package domain

import "errors"

var (
	// ErrNotFound is returned when a log id does not resolve, either in the
	// store or in the current snapshot.
	ErrNotFound = errors.New("log not found")

	// ErrDuplicate is returned when a store already holds a record with the same id.
	ErrDuplicate = errors.New("log already exists")

	// ErrInvalidURL is returned when onboarding receives an unusable business URL.
	ErrInvalidURL = errors.New("invalid business url")

	// ErrStoreFull is returned by bounded stores that reached their size limit.
	ErrStoreFull = errors.New("log store is full")
)
