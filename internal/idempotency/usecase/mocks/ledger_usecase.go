// Package mocks provides mock implementations of the idempotency use case interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/newsletter/internal/idempotency/domain"
)

// MockLedgerUseCase is a mock implementation of LedgerUseCase.
type MockLedgerUseCase struct {
	mock.Mock
}

// Claim mocks the Claim method.
func (m *MockLedgerUseCase) Claim(ctx context.Context, userID uuid.UUID, key domain.Key) (*domain.Claim, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}

// Complete mocks the Complete method.
func (m *MockLedgerUseCase) Complete(
	ctx context.Context,
	userID uuid.UUID,
	key domain.Key,
	resp domain.SavedResponse,
) error {
	args := m.Called(ctx, userID, key, resp)
	return args.Error(0)
}

// Purge mocks the Purge method.
func (m *MockLedgerUseCase) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// CountExpired mocks the CountExpired method.
func (m *MockLedgerUseCase) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}
