// Package usecase implements the delivery workers that drain the issue delivery queue.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/delivery/domain"
	newsletterDomain "github.com/allisson/newsletter/internal/newsletter/domain"
)

// QueueRepository is the consuming side of the delivery queue.
// Implementations run on the transaction carried by ctx.
type QueueRepository interface {
	// Dequeue locks one task ready at now, skipping rows locked by other workers.
	// Returns ErrQueueEmpty when no task is ready.
	Dequeue(ctx context.Context, now time.Time) (*domain.Task, error)

	Delete(ctx context.Context, task *domain.Task) error

	// Reschedule persists task.NRetries and task.ExecuteAfter.
	Reschedule(ctx context.Context, task *domain.Task) error
}

// IssueReader loads the content of an issue.
type IssueReader interface {
	Get(ctx context.Context, issueID uuid.UUID) (*newsletterDomain.Issue, error)
}
