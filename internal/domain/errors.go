package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("invalid request")
	// ErrUnauthorized is returned when the admin capability is missing.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict marks a write rejected because of existing state.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyAnswered is returned for a second answer to the same question of an attempt.
	ErrAlreadyAnswered = fmt.Errorf("%w: question already answered for this attempt", ErrConflict)
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoQuestionsAvailable is returned when the candidate pool is empty.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrStorage wraps failures of the underlying store.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidCredentials is returned by admin login.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
)

// Invalid builds a validation error carrying the reason shown to the caller.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// NotFound builds a not-found error naming the missing entity.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Storage wraps a store failure for the named operation.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
