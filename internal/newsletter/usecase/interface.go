// Package usecase implements publishing newsletter issues: the transactional unit that records an
// issue and queues its deliveries under an idempotency key.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	idempotencyDomain "github.com/allisson/newsletter/internal/idempotency/domain"
	"github.com/allisson/newsletter/internal/newsletter/domain"
)

// IssueRepository defines persistence operations for newsletter issues.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error

	// Get retrieves an issue by ID. Returns ErrIssueNotFound if not found.
	Get(ctx context.Context, issueID uuid.UUID) (*domain.Issue, error)

	List(ctx context.Context, offset, limit int) ([]*domain.Issue, error)
}

// DeliveryQueue is the write side of the delivery queue used at publish time.
type DeliveryQueue interface {
	// Enqueue snapshots the confirmed subscribers into one task each and returns the task count.
	Enqueue(ctx context.Context, issueID uuid.UUID, now time.Time) (int64, error)

	CountPending(ctx context.Context, issueID uuid.UUID) (int64, error)
}

// UseCase defines newsletter operations.
type UseCase interface {
	// Publish records the issue and queues one delivery per confirmed subscriber, all in the
	// transaction that claims input.IdempotencyKey for userID. A repeated call with the same key
	// returns the saved response of the first call and writes nothing.
	Publish(
		ctx context.Context,
		userID uuid.UUID,
		input *domain.PublishInput,
	) (*idempotencyDomain.SavedResponse, error)

	// Get returns an issue with its pending delivery count. Returns ErrIssueNotFound if not found.
	Get(ctx context.Context, issueID uuid.UUID) (*domain.IssueView, error)

	List(ctx context.Context, offset, limit int) ([]*domain.Issue, error)
}
