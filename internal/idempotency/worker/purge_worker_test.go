package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	usecaseMocks "github.com/allisson/newsletter/internal/idempotency/usecase/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPurgeWorker_PurgeOnce(t *testing.T) {
	ledger := &usecaseMocks.MockLedgerUseCase{}
	w := NewPurgeWorker(Config{Retention: 24 * time.Hour, ErrorInterval: time.Second}, ledger, discardLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	ctx := context.Background()
	ledger.On("Purge", ctx, now.Add(-24*time.Hour)).Return(int64(4), nil).Once()

	deleted, err := w.PurgeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	ledger.AssertExpectations(t)
}

func TestPurgeWorker_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	ledger := &usecaseMocks.MockLedgerUseCase{}
	w := NewPurgeWorker(Config{Retention: 2 * time.Hour, ErrorInterval: time.Hour}, ledger, discardLogger())

	called := make(chan struct{}, 1)
	ledger.On("Purge", mock.Anything, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { called <- struct{}{} }).
		Return(int64(1), nil).
		Once()

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)

	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("purge was not called")
	}

	w.Stop()
	require.NoError(t, w.Wait())
	ledger.AssertExpectations(t)
}

func TestPurgeWorker_RetriesAfterError(t *testing.T) {
	defer goleak.VerifyNone(t)

	ledger := &usecaseMocks.MockLedgerUseCase{}
	w := NewPurgeWorker(
		Config{Retention: 2 * time.Hour, ErrorInterval: 10 * time.Millisecond},
		ledger,
		discardLogger(),
	)

	called := make(chan struct{}, 2)
	ledger.On("Purge", mock.Anything, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { called <- struct{}{} }).
		Return(int64(0), assert.AnError).
		Once()
	ledger.On("Purge", mock.Anything, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { called <- struct{}{} }).
		Return(int64(0), nil).
		Once()

	require.NoError(t, w.Start(context.Background()))

	for range 2 {
		select {
		case <-called:
		case <-time.After(5 * time.Second):
			t.Fatal("purge was not retried")
		}
	}

	w.Stop()
	require.NoError(t, w.Wait())
	ledger.AssertExpectations(t)
}

func TestPurgeWorker_StopsWithParentContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ledger := &usecaseMocks.MockLedgerUseCase{}
	ledger.On("Purge", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()
	w := NewPurgeWorker(Config{Retention: 2 * time.Hour, ErrorInterval: time.Hour}, ledger, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	require.NoError(t, w.Wait())
}

func TestPurgeWorker_WaitWithoutStart(t *testing.T) {
	w := NewPurgeWorker(Config{}, &usecaseMocks.MockLedgerUseCase{}, discardLogger())
	assert.NoError(t, w.Wait())
	assert.NotPanics(t, w.Stop)
}

func TestPurgeWorker_SweepInterval(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   time.Duration
	}{
		{name: "half retention", config: Config{Retention: 24 * time.Hour, ErrorInterval: time.Minute}, want: 12 * time.Hour},
		{name: "zero retention falls back to error interval", config: Config{ErrorInterval: 5 * time.Second}, want: 5 * time.Second},
		{name: "short retention", config: Config{Retention: time.Second, ErrorInterval: 10 * time.Second}, want: 10 * time.Second},
		{name: "all zero", config: Config{}, want: minSweepInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewPurgeWorker(tt.config, &usecaseMocks.MockLedgerUseCase{}, discardLogger())
			assert.Equal(t, tt.want, w.sweepInterval())
		})
	}
}

func TestPurgeWorker_ZeroRetentionDoesNotSpin(t *testing.T) {
	defer goleak.VerifyNone(t)

	ledger := &usecaseMocks.MockLedgerUseCase{}
	w := NewPurgeWorker(Config{ErrorInterval: time.Hour}, ledger, discardLogger())

	called := make(chan struct{}, 10)
	ledger.On("Purge", mock.Anything, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { called <- struct{}{} }).
		Return(int64(0), nil)

	require.NoError(t, w.Start(context.Background()))
	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("purge was not called")
	}

	time.Sleep(100 * time.Millisecond)
	w.Stop()
	require.NoError(t, w.Wait())
	assert.Empty(t, called, "a second sweep ran without pausing")
}
