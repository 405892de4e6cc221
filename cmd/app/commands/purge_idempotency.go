package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	idempotencyUseCase "github.com/allisson/newsletter/internal/idempotency/usecase"
)

// RunPurgeIdempotency deletes ledger entries older than minutes once. In dry-run mode it only
// counts them.
func RunPurgeIdempotency(
	ctx context.Context,
	ledger idempotencyUseCase.LedgerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	minutes int,
	dryRun bool,
	format string,
) error {
	if minutes <= 0 {
		return fmt.Errorf("minutes must be a positive number, got: %d", minutes)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	olderThan := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	logger.Info("purging idempotency keys",
		slog.Int("minutes", minutes),
		slog.Time("older_than", olderThan),
		slog.Bool("dry_run", dryRun),
	)

	var (
		count int64
		err   error
	)
	if dryRun {
		count, err = ledger.CountExpired(ctx, olderThan)
	} else {
		count, err = ledger.Purge(ctx, olderThan)
	}
	if err != nil {
		return fmt.Errorf("failed to purge idempotency keys: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"count":   count,
			"minutes": minutes,
			"dry_run": dryRun,
		}); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d idempotency key(s) older than %d minute(s)\n", count, minutes)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d idempotency key(s) older than %d minute(s)\n", count, minutes)
	}

	logger.Info("purge completed",
		slog.Int64("count", count),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}
