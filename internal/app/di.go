// Package app provides the dependency injection container that assembles the service.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/newsletter/internal/config"
	"github.com/allisson/newsletter/internal/database"
	deliveryUseCase "github.com/allisson/newsletter/internal/delivery/usecase"
	"github.com/allisson/newsletter/internal/email"
	"github.com/allisson/newsletter/internal/http"
	idempotencyUseCase "github.com/allisson/newsletter/internal/idempotency/usecase"
	idempotencyWorker "github.com/allisson/newsletter/internal/idempotency/worker"
	"github.com/allisson/newsletter/internal/metrics"
	newsletterHTTP "github.com/allisson/newsletter/internal/newsletter/http"
	newsletterUseCase "github.com/allisson/newsletter/internal/newsletter/usecase"
	userUseCase "github.com/allisson/newsletter/internal/user/usecase"
)

// Container holds all application dependencies. Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger    *slog.Logger
	db        *sql.DB
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	deliveryMetrics metrics.DeliveryMetrics

	// Repositories
	userRepository        userUseCase.UserRepository
	idempotencyRepository idempotencyUseCase.Repository
	issueRepository       newsletterUseCase.IssueRepository
	queueRepository       queueRepository

	// Use cases
	userUseCase       userUseCase.UseCase
	ledgerUseCase     idempotencyUseCase.LedgerUseCase
	newsletterUseCase newsletterUseCase.UseCase

	// Handlers, transports and workers
	newsletterHandler *newsletterHTTP.NewsletterHandler
	emailSender       email.Sender
	deliveryPool      *deliveryUseCase.Pool
	purgeWorker       *idempotencyWorker.PurgeWorker
	httpServer        *http.Server
	metricsServer     *http.MetricsServer

	mu                        sync.Mutex
	loggerInit                sync.Once
	dbInit                    sync.Once
	txManagerInit             sync.Once
	metricsProviderInit       sync.Once
	businessMetricsInit       sync.Once
	deliveryMetricsInit       sync.Once
	userRepositoryInit        sync.Once
	idempotencyRepositoryInit sync.Once
	issueRepositoryInit       sync.Once
	queueRepositoryInit       sync.Once
	userUseCaseInit           sync.Once
	ledgerUseCaseInit         sync.Once
	newsletterUseCaseInit     sync.Once
	newsletterHandlerInit     sync.Once
	emailSenderInit           sync.Once
	deliveryPoolInit          sync.Once
	purgeWorkerInit           sync.Once
	httpServerInit            sync.Once
	metricsServerInit         sync.Once
	initErrors                map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// lazy runs init once under once and replays its error on every later call.
func (c *Container) lazy(once *sync.Once, name string, init func() error) error {
	once.Do(func() {
		if err := init(); err != nil {
			c.mu.Lock()
			c.initErrors[name] = err
			c.mu.Unlock()
		}
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger configured from LOG_LEVEL.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	err := c.lazy(&c.dbInit, "db", func() (err error) {
		c.db, err = c.initDB()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	err := c.lazy(&c.txManagerInit, "txManager", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for tx manager: %w", err)
		}
		c.txManager = database.NewTxManager(db)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	err := c.lazy(&c.metricsProviderInit, "metricsProvider", func() (err error) {
		if !c.config.MetricsEnabled {
			return nil
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			return fmt.Errorf("failed to create metrics provider: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the operation metrics, a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	err := c.lazy(&c.businessMetricsInit, "businessMetrics", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return err
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return nil
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return fmt.Errorf("failed to create business metrics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// DeliveryMetrics returns the delivery worker metrics, a no-op when metrics are disabled.
func (c *Container) DeliveryMetrics() (metrics.DeliveryMetrics, error) {
	err := c.lazy(&c.deliveryMetricsInit, "deliveryMetrics", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return err
		}
		if provider == nil {
			c.deliveryMetrics = metrics.NewNoOpDeliveryMetrics()
			return nil
		}
		c.deliveryMetrics, err = metrics.NewDeliveryMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return fmt.Errorf("failed to create delivery metrics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.deliveryMetrics, nil
}

// HTTPServer returns the API server with its routes registered. ctx bounds background
// middleware state and is captured on first call.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	err := c.lazy(&c.httpServerInit, "httpServer", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for http server: %w", err)
		}
		users, err := c.UserUseCase()
		if err != nil {
			return fmt.Errorf("failed to get user use case for http server: %w", err)
		}
		handler, err := c.NewsletterHandler()
		if err != nil {
			return fmt.Errorf("failed to get newsletter handler for http server: %w", err)
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			return fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}

		server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
		server.SetupRouter(ctx, c.config, users, handler, provider)
		c.httpServer = server
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	err := c.lazy(&c.metricsServerInit, "metricsServer", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return err
		}
		if provider == nil {
			return nil
		}
		c.metricsServer = http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown stops workers and servers that were started and releases shared resources.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if c.deliveryPool != nil {
		c.deliveryPool.Stop()
		if err := c.deliveryPool.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("delivery pool: %w", err))
		}
	}
	if c.purgeWorker != nil {
		c.purgeWorker.Stop()
		if err := c.purgeWorker.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("purge worker: %w", err))
		}
	}
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(context.Background(), database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
