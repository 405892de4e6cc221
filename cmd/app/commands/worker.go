package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/newsletter/internal/app"
	"github.com/allisson/newsletter/internal/config"
)

// RunWorker runs the delivery pool and the ledger purge worker without the admin API, plus the
// metrics server when metrics are enabled. Several worker processes may share one database.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting workers",
		slog.String("version", version),
		slog.Int("delivery_workers", cfg.DeliveryWorkers),
	)
	defer closeContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	if err := startWorkers(ctx, container); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
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
		logger.Info("stopping workers")
		if metricsServer == nil {
			return nil
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	})

	// workers are stopped and awaited by the container shutdown
	return group.Wait()
}
