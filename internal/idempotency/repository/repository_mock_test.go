package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/idempotency/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func TestPostgreSQLIdempotencyRepository_StorageErrors(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	t.Run("insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO idempotency").WillReturnError(assert.AnError)

		_, err := NewPostgreSQLIdempotencyRepository(db).Insert(ctx, userID, "key", now)
		assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("get", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT status").WillReturnError(assert.AnError)

		_, err := NewPostgreSQLIdempotencyRepository(db).Get(ctx, userID, "key")
		assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	})

	t.Run("get corrupt headers", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{
			"status", "claimed_at", "created_at", "response_status_code", "response_headers", "response_body",
		}).AddRow("completed", now, now, int64(303), []byte{0xff}, []byte("body"))
		mock.ExpectQuery("SELECT status").WillReturnRows(rows)

		_, err := NewPostgreSQLIdempotencyRepository(db).Get(ctx, userID, "key")
		assert.Error(t, err)
	})

	t.Run("save response rows affected", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE idempotency").
			WillReturnResult(sqlmock.NewErrorResult(assert.AnError))

		err := NewPostgreSQLIdempotencyRepository(db).SaveResponse(ctx, userID, "key", domain.SavedResponse{StatusCode: 200})
		assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	})

	t.Run("delete", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM idempotency").WillReturnError(assert.AnError)

		_, err := NewPostgreSQLIdempotencyRepository(db).DeleteOlderThan(ctx, now)
		assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	})

}

func TestPostgreSQLIdempotencyRepository_GetCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	userID := uuid.Must(uuid.NewV7())

	headers := domain.EncodeHeaders([]domain.HeaderPair{{Name: "Location", Value: []byte("/x")}})
	rows := sqlmock.NewRows([]string{
		"status", "claimed_at", "created_at", "response_status_code", "response_headers", "response_body",
	}).AddRow("completed", now, now, int64(303), headers, []byte("body"))
	mock.ExpectQuery("SELECT status").WithArgs(userID, "key").WillReturnRows(rows)

	record, err := NewPostgreSQLIdempotencyRepository(db).Get(context.Background(), userID, "key")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, record.Status)
	require.NotNil(t, record.Response)
	assert.Equal(t, 303, record.Response.StatusCode)
	assert.Equal(t, "/x", record.Response.Header().Get("Location"))
	assert.Equal(t, []byte("body"), record.Response.Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLIdempotencyRepository_BinaryUserID(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	mock.ExpectExec("INSERT IGNORE INTO idempotency").
		WithArgs(userID[:], "key", "claimed", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := NewMySQLIdempotencyRepository(db).Insert(context.Background(), userID, "key", now)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLIdempotencyRepository_SaveResponseNotClaimed(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.Must(uuid.NewV7())

	mock.ExpectExec("UPDATE idempotency").WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewMySQLIdempotencyRepository(db).SaveResponse(
		context.Background(), userID, "key", domain.SavedResponse{StatusCode: 200},
	)
	assert.ErrorIs(t, err, domain.ErrNotClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
