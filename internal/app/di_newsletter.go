package app

import (
	"fmt"

	"github.com/allisson/newsletter/internal/database"
	idempotencyRepository "github.com/allisson/newsletter/internal/idempotency/repository"
	idempotencyUseCase "github.com/allisson/newsletter/internal/idempotency/usecase"
	newsletterHTTP "github.com/allisson/newsletter/internal/newsletter/http"
	newsletterRepository "github.com/allisson/newsletter/internal/newsletter/repository"
	newsletterUseCase "github.com/allisson/newsletter/internal/newsletter/usecase"
	userRepository "github.com/allisson/newsletter/internal/user/repository"
	userUseCase "github.com/allisson/newsletter/internal/user/usecase"
)

// UserRepository returns the user repository for the configured driver.
func (c *Container) UserRepository() (userUseCase.UserRepository, error) {
	err := c.lazy(&c.userRepositoryInit, "userRepository", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for user repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.userRepository = userRepository.NewMySQLUserRepository(db)
		case database.DriverPostgres:
			c.userRepository = userRepository.NewPostgreSQLUserRepository(db)
		default:
			return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.userRepository, nil
}

// UserUseCase returns the admin user use case.
func (c *Container) UserUseCase() (userUseCase.UseCase, error) {
	err := c.lazy(&c.userUseCaseInit, "userUseCase", func() error {
		repo, err := c.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository for user use case: %w", err)
		}
		uc, err := userUseCase.NewUserUseCase(repo)
		if err != nil {
			return fmt.Errorf("failed to create user use case: %w", err)
		}
		c.userUseCase = uc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.userUseCase, nil
}

// IdempotencyRepository returns the ledger repository for the configured driver.
func (c *Container) IdempotencyRepository() (idempotencyUseCase.Repository, error) {
	err := c.lazy(&c.idempotencyRepositoryInit, "idempotencyRepository", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for idempotency repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.idempotencyRepository = idempotencyRepository.NewMySQLIdempotencyRepository(db)
		case database.DriverPostgres:
			c.idempotencyRepository = idempotencyRepository.NewPostgreSQLIdempotencyRepository(db)
		default:
			return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.idempotencyRepository, nil
}

// LedgerUseCase returns the idempotency ledger, wrapped with metrics when enabled.
func (c *Container) LedgerUseCase() (idempotencyUseCase.LedgerUseCase, error) {
	err := c.lazy(&c.ledgerUseCaseInit, "ledgerUseCase", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return fmt.Errorf("failed to get tx manager for ledger use case: %w", err)
		}
		repo, err := c.IdempotencyRepository()
		if err != nil {
			return fmt.Errorf("failed to get idempotency repository for ledger use case: %w", err)
		}

		ledger := idempotencyUseCase.NewLedgerUseCase(txManager, repo, c.config.IdempotencyClaimGracePeriod)
		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return fmt.Errorf("failed to get business metrics for ledger use case: %w", err)
			}
			ledger = idempotencyUseCase.NewLedgerUseCaseWithMetrics(ledger, businessMetrics)
		}
		c.ledgerUseCase = ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.ledgerUseCase, nil
}

// IssueRepository returns the newsletter issue repository for the configured driver.
func (c *Container) IssueRepository() (newsletterUseCase.IssueRepository, error) {
	err := c.lazy(&c.issueRepositoryInit, "issueRepository", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for issue repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.issueRepository = newsletterRepository.NewMySQLIssueRepository(db)
		case database.DriverPostgres:
			c.issueRepository = newsletterRepository.NewPostgreSQLIssueRepository(db)
		default:
			return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.issueRepository, nil
}

// NewsletterUseCase returns the publish use case, wrapped with metrics when enabled.
func (c *Container) NewsletterUseCase() (newsletterUseCase.UseCase, error) {
	err := c.lazy(&c.newsletterUseCaseInit, "newsletterUseCase", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return fmt.Errorf("failed to get tx manager for newsletter use case: %w", err)
		}
		ledger, err := c.LedgerUseCase()
		if err != nil {
			return fmt.Errorf("failed to get ledger for newsletter use case: %w", err)
		}
		issues, err := c.IssueRepository()
		if err != nil {
			return fmt.Errorf("failed to get issue repository for newsletter use case: %w", err)
		}
		queue, err := c.QueueRepository()
		if err != nil {
			return fmt.Errorf("failed to get queue repository for newsletter use case: %w", err)
		}

		uc := newsletterUseCase.NewNewsletterUseCase(txManager, ledger, issues, queue, c.config.AppBaseURL, c.Logger())
		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return fmt.Errorf("failed to get business metrics for newsletter use case: %w", err)
			}
			uc = newsletterUseCase.NewNewsletterUseCaseWithMetrics(uc, businessMetrics)
		}
		c.newsletterUseCase = uc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.newsletterUseCase, nil
}

// NewsletterHandler returns the admin newsletter HTTP handler.
func (c *Container) NewsletterHandler() (*newsletterHTTP.NewsletterHandler, error) {
	err := c.lazy(&c.newsletterHandlerInit, "newsletterHandler", func() error {
		uc, err := c.NewsletterUseCase()
		if err != nil {
			return fmt.Errorf("failed to get newsletter use case for handler: %w", err)
		}
		c.newsletterHandler = newsletterHTTP.NewNewsletterHandler(uc, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.newsletterHandler, nil
}
