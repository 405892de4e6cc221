package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/database"
	"github.com/allisson/newsletter/internal/delivery/domain"
	apperrors "github.com/allisson/newsletter/internal/errors"
)

// MySQLQueueRepository handles delivery queue persistence for MySQL. Issue IDs are stored as BINARY(16).
type MySQLQueueRepository struct {
	db *sql.DB
}

// NewMySQLQueueRepository creates a new MySQLQueueRepository.
func NewMySQLQueueRepository(db *sql.DB) *MySQLQueueRepository {
	return &MySQLQueueRepository{db: db}
}

// Enqueue inserts one task per currently confirmed subscriber and returns the number of tasks.
func (r *MySQLQueueRepository) Enqueue(ctx context.Context, issueID uuid.UUID, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email, n_retries, execute_after)
			  SELECT ?, email, 0, ?
			  FROM subscriptions
			  WHERE status = ?`

	result, err := querier.ExecContext(ctx, query, issueID[:], now, SubscriptionStatusConfirmed)
	if err != nil {
		return 0, apperrors.NewStorageError("enqueue delivery tasks", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("enqueue delivery tasks", err)
	}
	return count, nil
}

// Dequeue locks one ready task, skipping rows locked by other workers (MySQL 8.0+).
// Must run inside a transaction. Returns ErrQueueEmpty when nothing is ready.
func (r *MySQLQueueRepository) Dequeue(ctx context.Context, now time.Time) (*domain.Task, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT newsletter_issue_id, subscriber_email, n_retries, execute_after
			  FROM issue_delivery_queue
			  WHERE execute_after <= ?
			  LIMIT 1
			  FOR UPDATE SKIP LOCKED`

	var task domain.Task
	var issueID []byte
	err := querier.QueryRowContext(ctx, query, now).Scan(
		&issueID, &task.SubscriberEmail, &task.NRetries, &task.ExecuteAfter,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQueueEmpty
		}
		return nil, apperrors.NewStorageError("dequeue delivery task", err)
	}
	if err := task.IssueID.UnmarshalBinary(issueID); err != nil {
		return nil, apperrors.NewStorageError("dequeue delivery task", err)
	}
	return &task, nil
}

// Delete removes a task.
func (r *MySQLQueueRepository) Delete(ctx context.Context, task *domain.Task) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM issue_delivery_queue WHERE newsletter_issue_id = ? AND subscriber_email = ?`

	if _, err := querier.ExecContext(ctx, query, task.IssueID[:], task.SubscriberEmail); err != nil {
		return apperrors.NewStorageError("delete delivery task", err)
	}
	return nil
}

// Reschedule stores the task's retry count and next attempt time.
func (r *MySQLQueueRepository) Reschedule(ctx context.Context, task *domain.Task) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE issue_delivery_queue
			  SET n_retries = ?, execute_after = ?
			  WHERE newsletter_issue_id = ? AND subscriber_email = ?`

	_, err := querier.ExecContext(ctx, query, task.NRetries, task.ExecuteAfter, task.IssueID[:], task.SubscriberEmail)
	if err != nil {
		return apperrors.NewStorageError("reschedule delivery task", err)
	}
	return nil
}

// CountPending returns how many tasks are queued for an issue.
func (r *MySQLQueueRepository) CountPending(ctx context.Context, issueID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issue_delivery_queue WHERE newsletter_issue_id = ?`, issueID[:],
	).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("count delivery tasks", err)
	}
	return count, nil
}
