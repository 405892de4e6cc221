package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/newsletter/internal/idempotency/domain"
	"github.com/allisson/newsletter/internal/idempotency/usecase"
	usecaseMocks "github.com/allisson/newsletter/internal/idempotency/usecase/mocks"
)

// mockBusinessMetrics is a local mock for metrics.BusinessMetrics.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) expect(ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "idempotency", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "idempotency", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestLedgerUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())
	key := domain.Key("k")

	t.Run("Claim started", func(t *testing.T) {
		mockNext := &usecaseMocks.MockLedgerUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewLedgerUseCaseWithMetrics(mockNext, mockMetrics)

		claim := &domain.Claim{Outcome: domain.ClaimStarted}
		mockNext.On("Claim", ctx, userID, key).Return(claim, nil).Once()
		mockMetrics.expect(ctx, "claim_started", "success")

		res, err := uc.Claim(ctx, userID, key)
		assert.NoError(t, err)
		assert.Equal(t, claim, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Claim replay", func(t *testing.T) {
		mockNext := &usecaseMocks.MockLedgerUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewLedgerUseCaseWithMetrics(mockNext, mockMetrics)

		claim := &domain.Claim{Outcome: domain.ClaimReplay, Saved: &domain.SavedResponse{StatusCode: 303}}
		mockNext.On("Claim", ctx, userID, key).Return(claim, nil).Once()
		mockMetrics.expect(ctx, "claim_replay", "success")

		_, err := uc.Claim(ctx, userID, key)
		assert.NoError(t, err)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Claim error", func(t *testing.T) {
		mockNext := &usecaseMocks.MockLedgerUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewLedgerUseCaseWithMetrics(mockNext, mockMetrics)

		mockNext.On("Claim", ctx, userID, key).Return(nil, domain.ErrRequestInFlight).Once()
		mockMetrics.expect(ctx, "claim", "error")

		res, err := uc.Claim(ctx, userID, key)
		assert.ErrorIs(t, err, domain.ErrRequestInFlight)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Complete and purge", func(t *testing.T) {
		mockNext := &usecaseMocks.MockLedgerUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewLedgerUseCaseWithMetrics(mockNext, mockMetrics)

		resp := domain.SavedResponse{StatusCode: 303}
		cutoff := time.Now()
		mockNext.On("Complete", ctx, userID, key, resp).Return(nil).Once()
		mockNext.On("Purge", ctx, cutoff).Return(int64(2), nil).Once()
		mockNext.On("CountExpired", ctx, cutoff).Return(int64(2), nil).Once()
		mockMetrics.expect(ctx, "complete", "success")
		mockMetrics.expect(ctx, "purge", "success")

		assert.NoError(t, uc.Complete(ctx, userID, key, resp))

		deleted, err := uc.Purge(ctx, cutoff)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		count, err := uc.CountExpired(ctx, cutoff)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), count)

		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})
}
