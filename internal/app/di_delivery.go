package app

import (
	"fmt"

	"github.com/allisson/newsletter/internal/database"
	deliveryRepository "github.com/allisson/newsletter/internal/delivery/repository"
	deliveryUseCase "github.com/allisson/newsletter/internal/delivery/usecase"
	"github.com/allisson/newsletter/internal/email"
	idempotencyWorker "github.com/allisson/newsletter/internal/idempotency/worker"
	newsletterUseCase "github.com/allisson/newsletter/internal/newsletter/usecase"
)

// queueRepository is the delivery queue as seen by both its producer and its consumers.
type queueRepository interface {
	newsletterUseCase.DeliveryQueue
	deliveryUseCase.QueueRepository
}

// QueueRepository returns the delivery queue repository for the configured driver.
func (c *Container) QueueRepository() (queueRepository, error) {
	err := c.lazy(&c.queueRepositoryInit, "queueRepository", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for queue repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.queueRepository = deliveryRepository.NewMySQLQueueRepository(db)
		case database.DriverPostgres:
			c.queueRepository = deliveryRepository.NewPostgreSQLQueueRepository(db)
		default:
			return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.queueRepository, nil
}

// EmailSender returns the Postmark sender, or a logging sender when no server token is set.
func (c *Container) EmailSender() (email.Sender, error) {
	err := c.lazy(&c.emailSenderInit, "emailSender", func() error {
		if c.config.EmailAuthorizationToken == "" {
			c.Logger().Warn("EMAIL_AUTHORIZATION_TOKEN is empty, emails will only be logged")
			c.emailSender = email.NewLogSender(c.Logger())
			return nil
		}

		sender, err := email.NewPostmarkSender(email.Config{
			BaseURL:            c.config.EmailBaseURL,
			Sender:             c.config.EmailSender,
			AuthorizationToken: c.config.EmailAuthorizationToken,
			AccountToken:       c.config.EmailAccountToken,
			Timeout:            c.config.EmailTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create email sender: %w", err)
		}
		c.emailSender = sender
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.emailSender, nil
}

// DeliveryPool returns the pool of delivery workers.
func (c *Container) DeliveryPool() (*deliveryUseCase.Pool, error) {
	err := c.lazy(&c.deliveryPoolInit, "deliveryPool", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return fmt.Errorf("failed to get tx manager for delivery pool: %w", err)
		}
		queue, err := c.QueueRepository()
		if err != nil {
			return fmt.Errorf("failed to get queue repository for delivery pool: %w", err)
		}
		issues, err := c.IssueRepository()
		if err != nil {
			return fmt.Errorf("failed to get issue repository for delivery pool: %w", err)
		}
		sender, err := c.EmailSender()
		if err != nil {
			return fmt.Errorf("failed to get email sender for delivery pool: %w", err)
		}
		deliveryMetrics, err := c.DeliveryMetrics()
		if err != nil {
			return fmt.Errorf("failed to get delivery metrics for delivery pool: %w", err)
		}

		c.deliveryPool = deliveryUseCase.NewPool(deliveryUseCase.Config{
			Workers:            c.config.DeliveryWorkers,
			EmptyQueueInterval: c.config.DeliveryEmptyQueueInterval,
			ErrorInterval:      c.config.DeliveryErrorInterval,
			MaxAttempts:        c.config.DeliveryMaxAttempts,
			RetryBaseInterval:  c.config.DeliveryRetryBaseInterval,
			RetryMaxInterval:   c.config.DeliveryRetryMaxInterval,
		}, txManager, queue, issues, sender, deliveryMetrics, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.deliveryPool, nil
}

// PurgeWorker returns the idempotency ledger purge worker.
func (c *Container) PurgeWorker() (*idempotencyWorker.PurgeWorker, error) {
	err := c.lazy(&c.purgeWorkerInit, "purgeWorker", func() error {
		ledger, err := c.LedgerUseCase()
		if err != nil {
			return fmt.Errorf("failed to get ledger for purge worker: %w", err)
		}
		c.purgeWorker = idempotencyWorker.NewPurgeWorker(idempotencyWorker.Config{
			Retention:     c.config.IdempotencyRetention,
			ErrorInterval: c.config.DeliveryErrorInterval,
		}, ledger, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.purgeWorker, nil
}
