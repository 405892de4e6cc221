// Package domain defines the admin users who publish newsletter issues.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/errors"
)

// User is an admin allowed to publish. Idempotency keys are scoped to its ID, so two admins
// may reuse the same key without colliding.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
	// PasswordHash is a go-pwdhash encoded hash, never the plain password.
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	ErrUserNotFound      = errors.Wrap(errors.ErrNotFound, "user not found")
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong password, so callers cannot
	// probe which emails are registered.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")
)
