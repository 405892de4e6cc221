package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/database"
	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/user/domain"
)

const mysqlDuplicateEntry = 1062

// MySQLUserRepository handles user persistence for MySQL. IDs are stored as BINARY(16).
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// Create inserts a new user. A duplicate email returns ErrUserAlreadyExists.
func (r *MySQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, name, email, password, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		user.ID[:], user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.NewStorageError("insert user", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, name, email, password, created_at, updated_at
			  FROM users WHERE id = ?`
	return r.get(ctx, "get user by id", query, id[:])
}

// GetByEmail retrieves a user by email.
func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, name, email, password, created_at, updated_at
			  FROM users WHERE email = ?`
	return r.get(ctx, "get user by email", query, email)
}

func (r *MySQLUserRepository) get(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	var (
		user    domain.User
		idBytes []byte
	)
	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&idBytes, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.NewStorageError(op, err)
	}
	if err := user.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
	}
	return &user, nil
}
