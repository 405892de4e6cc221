// Package repository provides data persistence implementations for the delivery queue.
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

// SubscriptionStatusConfirmed is the subscriptions.status value of recipients included at enqueue time.
const SubscriptionStatusConfirmed = "confirmed"

// PostgreSQLQueueRepository handles delivery queue persistence for PostgreSQL.
type PostgreSQLQueueRepository struct {
	db *sql.DB
}

// NewPostgreSQLQueueRepository creates a new PostgreSQLQueueRepository.
func NewPostgreSQLQueueRepository(db *sql.DB) *PostgreSQLQueueRepository {
	return &PostgreSQLQueueRepository{db: db}
}

// Enqueue inserts one task per currently confirmed subscriber and returns the number of tasks.
func (r *PostgreSQLQueueRepository) Enqueue(ctx context.Context, issueID uuid.UUID, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email, n_retries, execute_after)
			  SELECT $1, email, 0, $2
			  FROM subscriptions
			  WHERE status = $3`

	result, err := querier.ExecContext(ctx, query, issueID, now, SubscriptionStatusConfirmed)
	if err != nil {
		return 0, apperrors.NewStorageError("enqueue delivery tasks", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("enqueue delivery tasks", err)
	}
	return count, nil
}

// Dequeue locks one ready task, skipping rows locked by other workers.
// Must run inside a transaction. Returns ErrQueueEmpty when nothing is ready.
func (r *PostgreSQLQueueRepository) Dequeue(ctx context.Context, now time.Time) (*domain.Task, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT newsletter_issue_id, subscriber_email, n_retries, execute_after
			  FROM issue_delivery_queue
			  WHERE execute_after <= $1
			  LIMIT 1
			  FOR UPDATE SKIP LOCKED`

	var task domain.Task
	err := querier.QueryRowContext(ctx, query, now).Scan(
		&task.IssueID, &task.SubscriberEmail, &task.NRetries, &task.ExecuteAfter,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQueueEmpty
		}
		return nil, apperrors.NewStorageError("dequeue delivery task", err)
	}
	return &task, nil
}

// Delete removes a task.
func (r *PostgreSQLQueueRepository) Delete(ctx context.Context, task *domain.Task) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM issue_delivery_queue WHERE newsletter_issue_id = $1 AND subscriber_email = $2`

	if _, err := querier.ExecContext(ctx, query, task.IssueID, task.SubscriberEmail); err != nil {
		return apperrors.NewStorageError("delete delivery task", err)
	}
	return nil
}

// Reschedule stores the task's retry count and next attempt time.
func (r *PostgreSQLQueueRepository) Reschedule(ctx context.Context, task *domain.Task) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE issue_delivery_queue
			  SET n_retries = $1, execute_after = $2
			  WHERE newsletter_issue_id = $3 AND subscriber_email = $4`

	_, err := querier.ExecContext(ctx, query, task.NRetries, task.ExecuteAfter, task.IssueID, task.SubscriberEmail)
	if err != nil {
		return apperrors.NewStorageError("reschedule delivery task", err)
	}
	return nil
}

// CountPending returns how many tasks are queued for an issue.
func (r *PostgreSQLQueueRepository) CountPending(ctx context.Context, issueID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issue_delivery_queue WHERE newsletter_issue_id = $1`, issueID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("count delivery tasks", err)
	}
	return count, nil
}
