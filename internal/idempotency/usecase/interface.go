// Package usecase implements the idempotency ledger: claiming keys, saving responses for replay
// and purging expired rows.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/idempotency/domain"
)

// Repository defines ledger persistence. Implementations run on the transaction carried by ctx.
type Repository interface {
	// Insert creates a claimed row and reports false when the key already exists.
	Insert(ctx context.Context, userID uuid.UUID, key domain.Key, now time.Time) (bool, error)

	// Get returns the row with a locking read. Returns ErrRecordNotFound if absent.
	Get(ctx context.Context, userID uuid.UUID, key domain.Key) (*domain.Record, error)

	// Reclaim refreshes claimed_at of a claimed row older than staleBefore.
	Reclaim(ctx context.Context, userID uuid.UUID, key domain.Key, staleBefore, now time.Time) (bool, error)

	// SaveResponse completes a claimed row. Returns ErrNotClaimed otherwise.
	SaveResponse(ctx context.Context, userID uuid.UUID, key domain.Key, resp domain.SavedResponse) error

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// LedgerUseCase guards a protected action with an idempotency key.
//
// Claim and Complete must run inside the same transaction (database.TxManager.WithTx) as the
// protected action, so the side effects and the saved response commit together or not at all.
type LedgerUseCase interface {
	// Claim takes ownership of (userID, key). The result is ClaimStarted when the caller must run
	// the action, or ClaimReplay with the saved response when the action already completed.
	// Returns ErrRequestInFlight when another request holds a fresh claim and
	// ErrSavedResponseMissing when a completed row has no response.
	Claim(ctx context.Context, userID uuid.UUID, key domain.Key) (*domain.Claim, error)

	// Complete stores resp for replay and marks the key completed.
	Complete(ctx context.Context, userID uuid.UUID, key domain.Key, resp domain.SavedResponse) error

	// Purge deletes rows created before olderThan in its own transaction and returns the count.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)

	// CountExpired returns how many rows Purge would delete.
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
}
