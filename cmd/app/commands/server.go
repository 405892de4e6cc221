package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/newsletter/internal/app"
	"github.com/allisson/newsletter/internal/config"
)

const shutdownTimeout = 30 * time.Second

// RunServer starts the admin API and the metrics server, and with withWorkers also the delivery
// pool and the purge worker in the same process. Blocks until SIGINT/SIGTERM or until a server
// fails, then shuts everything down within shutdownTimeout.
func RunServer(ctx context.Context, version string, withWorkers bool) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.Bool("with_workers", withWorkers),
	)
	defer closeContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := container.HTTPServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	if withWorkers {
		if err := startWorkers(ctx, container); err != nil {
			return err
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})
	if metricsServer != nil {
		group.Go(func() error {
			if err := metricsServer.Start(groupCtx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down servers")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return group.Wait()
}
