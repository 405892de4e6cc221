// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/newsletter/internal/app"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// validateFormat rejects output formats other than text and json.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}

// startWorkers starts the delivery pool and the ledger purge worker on ctx. Both are stopped and
// awaited by the container shutdown.
func startWorkers(ctx context.Context, container *app.Container) error {
	pool, err := container.DeliveryPool()
	if err != nil {
		return fmt.Errorf("failed to initialize delivery pool: %w", err)
	}
	purgeWorker, err := container.PurgeWorker()
	if err != nil {
		return fmt.Errorf("failed to initialize purge worker: %w", err)
	}

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start delivery pool: %w", err)
	}
	if err := purgeWorker.Start(ctx); err != nil {
		pool.Stop()
		return errors.Join(fmt.Errorf("failed to start purge worker: %w", err), pool.Wait())
	}
	return nil
}
