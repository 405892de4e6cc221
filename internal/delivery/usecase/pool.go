package usecase

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/newsletter/internal/database"
	"github.com/allisson/newsletter/internal/email"
	"github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/metrics"
)

// ErrAlreadyStarted is returned by Start on a running pool.
var ErrAlreadyStarted = errors.New("delivery pool already started")

// Pool runs a fixed number of delivery workers. Workers coordinate only through row locks in the
// database, so any number of pools may run against the same queue.
type Pool struct {
	workers []*Worker
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewPool creates a Pool of config.Workers workers (at least one).
func NewPool(
	config Config,
	txManager database.TxManager,
	queue QueueRepository,
	issues IssueReader,
	sender email.Sender,
	deliveryMetrics metrics.DeliveryMetrics,
	logger *slog.Logger,
) *Pool {
	size := max(config.Workers, 1)

	workers := make([]*Worker, 0, size)
	for i := range size {
		workers = append(workers, NewWorker(i+1, config, txManager, queue, issues, sender, deliveryMetrics, logger))
	}

	return &Pool{workers: workers, logger: logger}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start launches every worker in its own goroutine. Workers run until Stop is called or ctx is done.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	group, groupCtx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		group.Go(func() error {
			w.Run(groupCtx)
			return nil
		})
	}

	p.logger.Info("delivery pool started", slog.Int("workers", len(p.workers)))

	go func() {
		p.err = group.Wait()
		close(p.done)
	}()
	return nil
}

// Stop asks every worker to exit at its next iteration boundary.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until every worker has exited. It returns immediately if Start was never called.
func (p *Pool) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done
	p.logger.Info("delivery pool stopped")
	return p.err
}
