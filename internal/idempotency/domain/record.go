// Package domain defines the idempotency ledger entities: client keys, ledger records and the
// saved HTTP responses replayed to retried requests.
package domain

import (
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/errors"
	appValidation "github.com/allisson/newsletter/internal/validation"
)

// Key is a validated client supplied idempotency key.
type Key string

// ParseKey validates s as an idempotency key: 1 to 50 printable ASCII characters.
// Invalid keys are rejected with a ValidationError and never reach the ledger.
func ParseKey(s string) (Key, error) {
	if err := validation.Validate(s, appValidation.IdempotencyKey...); err != nil {
		return "", errors.NewValidationError("idempotency_key", strings.TrimSuffix(err.Error(), "."))
	}
	return Key(s), nil
}

func (k Key) String() string { return string(k) }

// Status is the lifecycle state of a ledger record.
type Status string

const (
	// StatusClaimed marks a record whose protected action has not completed yet.
	StatusClaimed Status = "claimed"
	// StatusCompleted marks a record holding a replayable response.
	StatusCompleted Status = "completed"
)

// Record is one row of the idempotency ledger, unique per (UserID, Key).
type Record struct {
	UserID    uuid.UUID
	Key       Key
	Status    Status
	ClaimedAt time.Time
	CreatedAt time.Time
	// Response is nil until the record is completed.
	Response *SavedResponse
}

// IsStale reports whether a claimed record was last claimed before cutoff and may be taken over.
func (r *Record) IsStale(cutoff time.Time) bool {
	return r.Status == StatusClaimed && r.ClaimedAt.Before(cutoff)
}

// ClaimOutcome tells the caller of Claim what to do next.
type ClaimOutcome int

const (
	// ClaimStarted means the caller owns the key and must run the protected action.
	ClaimStarted ClaimOutcome = iota + 1
	// ClaimReplay means the action already completed; the saved response must be returned as is.
	ClaimReplay
)

// Claim is the result of claiming an idempotency key.
type Claim struct {
	Outcome ClaimOutcome
	// Saved is set when Outcome is ClaimReplay.
	Saved *SavedResponse
}

// Domain-specific errors for ledger operations.
var (
	// ErrRecordNotFound indicates no ledger row exists for the key.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "idempotency record not found")

	// ErrRequestInFlight indicates another request holds a fresh claim on the same key.
	ErrRequestInFlight = errors.Wrap(errors.ErrLocked, "idempotency key is claimed by a request in flight")

	// ErrSavedResponseMissing indicates a completed row without a stored response.
	ErrSavedResponseMissing = errors.New("expected a saved response, found none")

	// ErrNotClaimed indicates Complete was called for a key the caller does not hold.
	ErrNotClaimed = errors.New("idempotency key is not claimed")
)
