package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/database"
	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/idempotency/domain"
)

// MySQLIdempotencyRepository handles ledger persistence for MySQL.
// User ids are stored as BINARY(16).
type MySQLIdempotencyRepository struct {
	db *sql.DB
}

// NewMySQLIdempotencyRepository creates a new MySQLIdempotencyRepository.
func NewMySQLIdempotencyRepository(db *sql.DB) *MySQLIdempotencyRepository {
	return &MySQLIdempotencyRepository{db: db}
}

// Insert creates a claimed row unless one already exists for (userID, key).
func (r *MySQLIdempotencyRepository) Insert(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT IGNORE INTO idempotency (user_id, idempotency_key, status, claimed_at, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(ctx, query, userID[:], string(key), string(domain.StatusClaimed), now, now)
	if err != nil {
		return false, apperrors.NewStorageError("insert idempotency record", err)
	}
	return rowsAffected(result, "insert idempotency record")
}

// Get returns the row for (userID, key) with a locking read, so the latest committed
// version is seen regardless of the transaction snapshot.
func (r *MySQLIdempotencyRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
) (*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, claimed_at, created_at, response_status_code, response_headers, response_body
			  FROM idempotency
			  WHERE user_id = ? AND idempotency_key = ?
			  FOR UPDATE`

	record := domain.Record{UserID: userID, Key: key}
	var status string
	var statusCode sql.NullInt32
	var headers, body []byte

	err := querier.QueryRowContext(ctx, query, userID[:], string(key)).Scan(
		&status, &record.ClaimedAt, &record.CreatedAt, &statusCode, &headers, &body,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, apperrors.NewStorageError("get idempotency record", err)
	}
	record.Status = domain.Status(status)

	if statusCode.Valid {
		resp, err := toSavedResponse(int(statusCode.Int32), headers, body)
		if err != nil {
			return nil, err
		}
		record.Response = resp
	}

	return &record, nil
}

// Reclaim takes over a claimed row whose claim is older than staleBefore.
func (r *MySQLIdempotencyRepository) Reclaim(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	staleBefore, now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE idempotency
			  SET claimed_at = ?
			  WHERE user_id = ? AND idempotency_key = ? AND status = ? AND claimed_at < ?`

	result, err := querier.ExecContext(ctx, query, now, userID[:], string(key), string(domain.StatusClaimed), staleBefore)
	if err != nil {
		return false, apperrors.NewStorageError("reclaim idempotency record", err)
	}
	return rowsAffected(result, "reclaim idempotency record")
}

// SaveResponse stores the response and marks the row completed.
func (r *MySQLIdempotencyRepository) SaveResponse(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	resp domain.SavedResponse,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE idempotency
			  SET status = ?, response_status_code = ?, response_headers = ?, response_body = ?
			  WHERE user_id = ? AND idempotency_key = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query,
		string(domain.StatusCompleted), resp.StatusCode, domain.EncodeHeaders(resp.Headers), nonNilBody(resp.Body),
		userID[:], string(key), string(domain.StatusClaimed),
	)
	if err != nil {
		return apperrors.NewStorageError("save idempotency response", err)
	}

	updated, err := rowsAffected(result, "save idempotency response")
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotClaimed
	}
	return nil
}

// DeleteOlderThan removes every row created before cutoff.
func (r *MySQLIdempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM idempotency WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.NewStorageError("purge idempotency records", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("purge idempotency records", err)
	}
	return count, nil
}

// CountOlderThan counts the rows DeleteOlderThan would remove.
func (r *MySQLIdempotencyRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM idempotency WHERE created_at < ?`, cutoff).
		Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("count idempotency records", err)
	}
	return count, nil
}
