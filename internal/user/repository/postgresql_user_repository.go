// Package repository provides data persistence implementations for admin users.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/newsletter/internal/database"
	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/user/domain"
)

const pgUniqueViolation = "23505"

// PostgreSQLUserRepository handles user persistence for PostgreSQL.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}

// Create inserts a new user. A duplicate email returns ErrUserAlreadyExists.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, name, email, password, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $5)`

	_, err := querier.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.NewStorageError("insert user", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, name, email, password, created_at, updated_at
			  FROM users WHERE id = $1`
	return r.get(ctx, "get user by id", query, id)
}

// GetByEmail retrieves a user by email.
func (r *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, name, email, password, created_at, updated_at
			  FROM users WHERE email = $1`
	return r.get(ctx, "get user by email", query, email)
}

func (r *PostgreSQLUserRepository) get(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	var user domain.User
	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.NewStorageError(op, err)
	}
	return &user, nil
}
