package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/database"
	"github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/idempotency/domain"
)

type ledgerUseCase struct {
	txManager  database.TxManager
	repo       Repository
	claimGrace time.Duration
	now        func() time.Time
}

// NewLedgerUseCase creates a LedgerUseCase. A claimed row older than claimGrace is treated as
// abandoned and may be claimed again.
func NewLedgerUseCase(txManager database.TxManager, repo Repository, claimGrace time.Duration) LedgerUseCase {
	return &ledgerUseCase{
		txManager:  txManager,
		repo:       repo,
		claimGrace: claimGrace,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (l *ledgerUseCase) Claim(ctx context.Context, userID uuid.UUID, key domain.Key) (*domain.Claim, error) {
	now := l.now()

	inserted, err := l.repo.Insert(ctx, userID, key, now)
	if err != nil {
		return nil, err
	}
	if inserted {
		return &domain.Claim{Outcome: domain.ClaimStarted}, nil
	}

	record, err := l.repo.Get(ctx, userID, key)
	if err != nil {
		// Deleted by a purge between the insert and the read.
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrRequestInFlight
		}
		return nil, err
	}

	switch record.Status {
	case domain.StatusCompleted:
		if record.Response == nil {
			return nil, domain.ErrSavedResponseMissing
		}
		return &domain.Claim{Outcome: domain.ClaimReplay, Saved: record.Response}, nil
	case domain.StatusClaimed:
		cutoff := now.Add(-l.claimGrace)
		if !record.IsStale(cutoff) {
			return nil, domain.ErrRequestInFlight
		}
		reclaimed, err := l.repo.Reclaim(ctx, userID, key, cutoff, now)
		if err != nil {
			return nil, err
		}
		if !reclaimed {
			return nil, domain.ErrRequestInFlight
		}
		return &domain.Claim{Outcome: domain.ClaimStarted}, nil
	default:
		return nil, fmt.Errorf("unknown idempotency record status %q", record.Status)
	}
}

func (l *ledgerUseCase) Complete(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	resp domain.SavedResponse,
) error {
	return l.repo.SaveResponse(ctx, userID, key, resp)
}

func (l *ledgerUseCase) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	var deleted int64
	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = l.repo.DeleteOlderThan(ctx, olderThan)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (l *ledgerUseCase) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	return l.repo.CountOlderThan(ctx, olderThan)
}
