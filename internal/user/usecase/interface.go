// Package usecase implements admin user registration and credential checks.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/user/domain"
)

// CreateUserInput contains the input data for registering an admin user.
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// UseCase defines admin user operations.
type UseCase interface {
	// CreateUser validates the input, hashes the password and stores the user.
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)

	// Authenticate returns the user for a matching email/password pair,
	// or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
