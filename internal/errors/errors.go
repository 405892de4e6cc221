// Package errors holds the error vocabulary shared by every layer. Use cases return these sentinels
// (or errors wrapping them) and httputil turns them into status codes, so handlers never inspect
// driver or transport errors directly.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the issue or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a unique constraint was hit, e.g. a second user with the same email.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput means the request failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized means the caller could not be authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	// ErrLocked means another request currently holds the resource, e.g. a fresh idempotency claim.
	ErrLocked = errors.New("locked")
)

// New is errors.New, re-exported so callers need a single errors import.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message and keeps it matchable with Is/As. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
