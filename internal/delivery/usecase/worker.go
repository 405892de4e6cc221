package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/allisson/newsletter/internal/database"
	"github.com/allisson/newsletter/internal/delivery/domain"
	"github.com/allisson/newsletter/internal/email"
	"github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/metrics"
)

// Outcome labels recorded per iteration.
const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
	outcomeRetried = "retried"
	outcomeEmpty   = "empty"
	outcomeError   = "error"
)

// Config holds delivery worker configuration.
type Config struct {
	// Workers is the number of concurrent workers in a Pool.
	Workers int
	// EmptyQueueInterval is the pause after finding no ready task.
	EmptyQueueInterval time.Duration
	// ErrorInterval is the pause after a failed iteration.
	ErrorInterval time.Duration
	// MaxAttempts bounds send attempts per task. 1 drops a task after its first failure.
	MaxAttempts int
	// RetryBaseInterval and RetryMaxInterval bound the exponential delay between attempts.
	RetryBaseInterval time.Duration
	RetryMaxInterval  time.Duration
}

// Worker processes delivery tasks one at a time.
type Worker struct {
	id        int
	config    Config
	txManager database.TxManager
	queue     QueueRepository
	issues    IssueReader
	sender    email.Sender
	metrics   metrics.DeliveryMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewWorker creates a new Worker.
func NewWorker(
	id int,
	config Config,
	txManager database.TxManager,
	queue QueueRepository,
	issues IssueReader,
	sender email.Sender,
	deliveryMetrics metrics.DeliveryMetrics,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:        id,
		config:    config,
		txManager: txManager,
		queue:     queue,
		issues:    issues,
		sender:    sender,
		metrics:   deliveryMetrics,
		logger:    logger.With(slog.Int("worker_id", id)),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExecuteTask dequeues one ready task, attempts its delivery and removes or reschedules it,
// all in one transaction. A transport failure is not an error: the task is retried later or
// dropped depending on MaxAttempts. Returned errors come from storage or are unexpected; the
// transaction is rolled back and the task stays queued.
func (w *Worker) ExecuteTask(ctx context.Context) (domain.Outcome, error) {
	outcome := domain.OutcomeEmptyQueue
	label := outcomeEmpty

	err := w.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := w.now()

		task, err := w.queue.Dequeue(ctx, now)
		if errors.Is(err, domain.ErrQueueEmpty) {
			return nil
		}
		if err != nil {
			return err
		}
		outcome = domain.OutcomeTaskCompleted

		logger := w.logger.With(
			slog.String("issue_id", task.IssueID.String()),
			slog.String("recipient", task.SubscriberEmail),
			slog.Int("attempt", task.NRetries+1),
		)

		recipient, err := domain.ParseSubscriberEmail(task.SubscriberEmail)
		if err != nil {
			logger.Warn("skipping a confirmed subscriber, their stored contact details are invalid",
				slog.Any("error", err),
			)
			label = outcomeDropped
			return w.queue.Delete(ctx, task)
		}

		issue, err := w.issues.Get(ctx, task.IssueID)
		if err != nil {
			return err
		}

		start := time.Now()
		sendErr := w.sender.Send(ctx, recipient.String(), issue.Title, issue.HTMLContent, issue.TextContent)
		w.metrics.RecordSend(ctx, time.Since(start), metrics.StatusOf(sendErr))

		if sendErr == nil {
			label = outcomeSent
			return w.queue.Delete(ctx, task)
		}

		if task.NRetries+1 < w.config.MaxAttempts {
			task.NRetries++
			task.ExecuteAfter = now.Add(w.retryDelay(task.NRetries))
			logger.Warn("failed to deliver issue, retry scheduled",
				slog.Any("error", sendErr),
				slog.Time("execute_after", task.ExecuteAfter),
			)
			label = outcomeRetried
			return w.queue.Reschedule(ctx, task)
		}

		logger.Error("failed to deliver issue to a confirmed subscriber, skipping",
			slog.Any("error", sendErr),
			slog.String("error_kind", errors.KindOf(sendErr).String()),
		)
		label = outcomeFailed
		return w.queue.Delete(ctx, task)
	})
	if err != nil {
		w.metrics.RecordOutcome(ctx, outcomeError)
		return outcome, err
	}

	w.metrics.RecordOutcome(ctx, label)
	return outcome, nil
}

// retryDelay returns the pause before attempt number attempt+1, growing exponentially from
// RetryBaseInterval up to RetryMaxInterval.
func (w *Worker) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.config.RetryBaseInterval
	b.MaxInterval = w.config.RetryMaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// Run executes tasks until ctx is cancelled. Empty queues and errors pause the loop;
// errors never stop it. Cancellation is observed only between iterations: a task in flight
// always finishes its send and commits, bounded by the sender's own timeout.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("starting delivery worker")

	iterationCtx := context.WithoutCancel(ctx)
	for {
		outcome, err := w.ExecuteTask(iterationCtx)

		var pause time.Duration
		switch {
		case err != nil:
			if errors.KindOf(err) == errors.KindStorage {
				w.logger.Warn("transient error while processing delivery queue", slog.Any("error", err))
			} else {
				w.logger.Error("unexpected error while processing delivery queue",
					slog.Any("error", err),
					slog.String("error_kind", errors.KindOf(err).String()),
				)
			}
			pause = w.config.ErrorInterval
		case outcome == domain.OutcomeEmptyQueue:
			pause = w.config.EmptyQueueInterval
		}

		if ctx.Err() != nil || (pause > 0 && !sleep(ctx, pause)) {
			w.logger.Info("stopping delivery worker")
			return
		}
	}
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
