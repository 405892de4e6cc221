package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/testutil"
	"github.com/allisson/newsletter/internal/user/domain"
)

type userRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

var userCases = []struct {
	name  string
	setup func(t *testing.T) *sql.DB
	repo  func(db *sql.DB) userRepository
}{
	{
		name:  "postgres",
		setup: testutil.SetupPostgresDB,
		repo:  func(db *sql.DB) userRepository { return NewPostgreSQLUserRepository(db) },
	},
	{
		name:  "mysql",
		setup: testutil.SetupMySQLDB,
		repo:  func(db *sql.DB) userRepository { return NewMySQLUserRepository(db) },
	},
}

func newUser(email string) *domain.User {
	return &domain.User{
		ID:           uuid.Must(uuid.NewV7()),
		Name:         "Admin",
		Email:        email,
		PasswordHash: "$argon2id$hash",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	for _, tc := range userCases {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := tc.repo(db)
			ctx := context.Background()

			user := newUser("admin@example.com")
			require.NoError(t, repo.Create(ctx, user))

			byID, err := repo.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.ID, byID.ID)
			assert.Equal(t, user.Name, byID.Name)
			assert.Equal(t, user.Email, byID.Email)
			assert.Equal(t, user.PasswordHash, byID.PasswordHash)
			assert.WithinDuration(t, user.CreatedAt, byID.CreatedAt, time.Second)
			assert.WithinDuration(t, user.CreatedAt, byID.UpdatedAt, time.Second)

			byEmail, err := repo.GetByEmail(ctx, "admin@example.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, byEmail.ID)

			_, err = repo.GetByID(ctx, uuid.Must(uuid.NewV7()))
			assert.ErrorIs(t, err, domain.ErrUserNotFound)

			_, err = repo.GetByEmail(ctx, "nobody@example.com")
			assert.ErrorIs(t, err, domain.ErrUserNotFound)
		})
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	for _, tc := range userCases {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := tc.repo(db)
			ctx := context.Background()

			require.NoError(t, repo.Create(ctx, newUser("admin@example.com")))

			err := repo.Create(ctx, newUser("admin@example.com"))
			assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		})
	}
}

func TestUserRepository_DriverErrors(t *testing.T) {
	t.Run("postgres unique violation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: pgUniqueViolation})

		err = NewPostgreSQLUserRepository(db).Create(context.Background(), newUser("a@example.com"))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql duplicate entry", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec("INSERT INTO users").WillReturnError(&mysql.MySQLError{Number: mysqlDuplicateEntry})

		err = NewMySQLUserRepository(db).Create(context.Background(), newUser("a@example.com"))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other insert failures are storage errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec("INSERT INTO users").WillReturnError(sql.ErrConnDone)

		err = NewPostgreSQLUserRepository(db).Create(context.Background(), newUser("a@example.com"))
		assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})

	t.Run("lookup failure is a storage error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectQuery("SELECT id, name, email").WithArgs("a@example.com").WillReturnError(sql.ErrConnDone)

		_, err = NewMySQLUserRepository(db).GetByEmail(context.Background(), "a@example.com")
		assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
