// Package repository provides data persistence implementations for the idempotency ledger.
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

// PostgreSQLIdempotencyRepository handles ledger persistence for PostgreSQL.
type PostgreSQLIdempotencyRepository struct {
	db *sql.DB
}

// NewPostgreSQLIdempotencyRepository creates a new PostgreSQLIdempotencyRepository.
func NewPostgreSQLIdempotencyRepository(db *sql.DB) *PostgreSQLIdempotencyRepository {
	return &PostgreSQLIdempotencyRepository{db: db}
}

// Insert creates a claimed row unless one already exists for (userID, key).
// A concurrent uncommitted insert of the same key blocks until that transaction ends.
func (r *PostgreSQLIdempotencyRepository) Insert(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO idempotency (user_id, idempotency_key, status, claimed_at, created_at)
			  VALUES ($1, $2, $3, $4, $4)
			  ON CONFLICT DO NOTHING`

	result, err := querier.ExecContext(ctx, query, userID, string(key), string(domain.StatusClaimed), now)
	if err != nil {
		return false, apperrors.NewStorageError("insert idempotency record", err)
	}
	return rowsAffected(result, "insert idempotency record")
}

// Get returns the row for (userID, key), locking it for the rest of the transaction.
func (r *PostgreSQLIdempotencyRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
) (*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, claimed_at, created_at, response_status_code, response_headers, response_body
			  FROM idempotency
			  WHERE user_id = $1 AND idempotency_key = $2
			  FOR UPDATE`

	record := domain.Record{UserID: userID, Key: key}
	var status string
	var statusCode sql.NullInt32
	var headers, body []byte

	err := querier.QueryRowContext(ctx, query, userID, string(key)).Scan(
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
// The conditional update is the compare-and-swap: only one contender can match it.
func (r *PostgreSQLIdempotencyRepository) Reclaim(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	staleBefore, now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE idempotency
			  SET claimed_at = $1
			  WHERE user_id = $2 AND idempotency_key = $3 AND status = $4 AND claimed_at < $5`

	result, err := querier.ExecContext(ctx, query, now, userID, string(key), string(domain.StatusClaimed), staleBefore)
	if err != nil {
		return false, apperrors.NewStorageError("reclaim idempotency record", err)
	}
	return rowsAffected(result, "reclaim idempotency record")
}

// SaveResponse stores the response and marks the row completed.
func (r *PostgreSQLIdempotencyRepository) SaveResponse(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	resp domain.SavedResponse,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE idempotency
			  SET status = $1, response_status_code = $2, response_headers = $3, response_body = $4
			  WHERE user_id = $5 AND idempotency_key = $6 AND status = $7`

	result, err := querier.ExecContext(ctx, query,
		string(domain.StatusCompleted), resp.StatusCode, domain.EncodeHeaders(resp.Headers), nonNilBody(resp.Body),
		userID, string(key), string(domain.StatusClaimed),
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
func (r *PostgreSQLIdempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM idempotency WHERE created_at < $1`, cutoff)
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
func (r *PostgreSQLIdempotencyRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM idempotency WHERE created_at < $1`, cutoff).
		Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("count idempotency records", err)
	}
	return count, nil
}
