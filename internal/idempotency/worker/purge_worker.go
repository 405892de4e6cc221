// Package worker runs the idempotency ledger retention sweep.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/idempotency/usecase"
)

// minSweepInterval bounds the loop when both Retention and ErrorInterval are zero.
const minSweepInterval = time.Second

// ErrAlreadyStarted is returned by Start on a running worker.
var ErrAlreadyStarted = errors.New("purge worker already started")

// Config holds purge worker configuration.
type Config struct {
	// Retention is how long ledger rows are kept after their first claim.
	Retention time.Duration
	// ErrorInterval is the pause after a failed sweep.
	ErrorInterval time.Duration
}

// PurgeWorker periodically deletes ledger rows older than the retention window.
// After a successful sweep it sleeps for half the retention window, never less than ErrorInterval.
type PurgeWorker struct {
	config Config
	ledger usecase.LedgerUseCase
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPurgeWorker creates a new PurgeWorker.
func NewPurgeWorker(config Config, ledger usecase.LedgerUseCase, logger *slog.Logger) *PurgeWorker {
	return &PurgeWorker{
		config: config,
		ledger: ledger,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PurgeOnce runs a single sweep and returns the number of deleted rows.
func (w *PurgeWorker) PurgeOnce(ctx context.Context) (int64, error) {
	return w.ledger.Purge(ctx, w.now().Add(-w.config.Retention))
}

// Start launches the sweep loop in a goroutine. It runs until Stop is called or ctx is done.
func (w *PurgeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.run(ctx)
	}()
	return nil
}

// Stop asks the loop to exit at its next sleep point.
func (w *PurgeWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
}

// Wait blocks until the loop has exited. It returns immediately if Start was never called.
func (w *PurgeWorker) Wait() error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done
	return nil
}

func (w *PurgeWorker) run(ctx context.Context) {
	w.logger.Info("starting idempotency purge worker",
		slog.Duration("retention", w.config.Retention),
	)

	for {
		interval := w.sweepInterval()

		deleted, err := w.PurgeOnce(ctx)
		if err != nil {
			interval = w.config.ErrorInterval
			if ctx.Err() == nil {
				w.logger.Error("failed to purge idempotency records",
					slog.Any("error", err),
					slog.String("error_kind", errors.KindOf(err).String()),
				)
			}
		} else if deleted > 0 {
			w.logger.Info("purged idempotency records", slog.Int64("deleted", deleted))
		}

		if !sleep(ctx, interval) {
			w.logger.Info("stopping idempotency purge worker")
			return
		}
	}
}

func (w *PurgeWorker) sweepInterval() time.Duration {
	interval := max(w.config.Retention/2, w.config.ErrorInterval)
	if interval <= 0 {
		return minSweepInterval
	}
	return interval
}

// sleep pauses for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
