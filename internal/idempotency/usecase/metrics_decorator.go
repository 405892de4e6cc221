package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/idempotency/domain"
	"github.com/allisson/newsletter/internal/metrics"
)

const metricsDomain = "idempotency"

// ledgerUseCaseWithMetrics decorates LedgerUseCase with metrics instrumentation.
type ledgerUseCaseWithMetrics struct {
	next    LedgerUseCase
	metrics metrics.BusinessMetrics
}

// NewLedgerUseCaseWithMetrics wraps a LedgerUseCase with metrics recording.
func NewLedgerUseCaseWithMetrics(useCase LedgerUseCase, m metrics.BusinessMetrics) LedgerUseCase {
	return &ledgerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *ledgerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusOf(err)
	l.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	l.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Claim records the claim outcome as the operation name: claim_started, claim_replay or claim.
func (l *ledgerUseCaseWithMetrics) Claim(ctx context.Context, userID uuid.UUID, key domain.Key) (*domain.Claim, error) {
	start := time.Now()
	claim, err := l.next.Claim(ctx, userID, key)

	operation := "claim"
	if claim != nil {
		switch claim.Outcome {
		case domain.ClaimStarted:
			operation = "claim_started"
		case domain.ClaimReplay:
			operation = "claim_replay"
		}
	}
	l.record(ctx, operation, start, err)

	return claim, err
}

func (l *ledgerUseCaseWithMetrics) Complete(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	resp domain.SavedResponse,
) error {
	start := time.Now()
	err := l.next.Complete(ctx, userID, key, resp)
	l.record(ctx, "complete", start, err)
	return err
}

func (l *ledgerUseCaseWithMetrics) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	start := time.Now()
	deleted, err := l.next.Purge(ctx, olderThan)
	l.record(ctx, "purge", start, err)
	return deleted, err
}

func (l *ledgerUseCaseWithMetrics) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	return l.next.CountExpired(ctx, olderThan)
}
