package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	idempotencyDomain "github.com/allisson/newsletter/internal/idempotency/domain"
	"github.com/allisson/newsletter/internal/metrics"
	"github.com/allisson/newsletter/internal/newsletter/domain"
)

// newsletterUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type newsletterUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewNewsletterUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewNewsletterUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &newsletterUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (n *newsletterUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusOf(err)
	n.metrics.RecordOperation(ctx, "newsletter", operation, status)
	n.metrics.RecordDuration(ctx, "newsletter", operation, time.Since(start), status)
}

// Publish records metrics for publish operations, replays included.
func (n *newsletterUseCaseWithMetrics) Publish(
	ctx context.Context,
	userID uuid.UUID,
	input *domain.PublishInput,
) (*idempotencyDomain.SavedResponse, error) {
	start := time.Now()
	resp, err := n.next.Publish(ctx, userID, input)
	n.record(ctx, "publish", start, err)
	return resp, err
}

func (n *newsletterUseCaseWithMetrics) Get(ctx context.Context, issueID uuid.UUID) (*domain.IssueView, error) {
	start := time.Now()
	view, err := n.next.Get(ctx, issueID)
	n.record(ctx, "get", start, err)
	return view, err
}

func (n *newsletterUseCaseWithMetrics) List(ctx context.Context, offset, limit int) ([]*domain.Issue, error) {
	start := time.Now()
	issues, err := n.next.List(ctx, offset, limit)
	n.record(ctx, "list", start, err)
	return issues, err
}
