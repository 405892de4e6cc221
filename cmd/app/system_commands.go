package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/newsletter/cmd/app/commands"
	"github.com/allisson/newsletter/internal/app"
	"github.com/allisson/newsletter/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "with-workers",
					Aliases: []string{"w"},
					Value:   false,
					Usage:   "Also run the delivery workers and the idempotency purge worker",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version, cmd.Bool("with-workers"))
			},
		},
		{
			Name:  "worker",
			Usage: "Run the delivery workers and the idempotency purge worker",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunWorker(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "purge-idempotency",
			Usage: "Delete idempotency keys older than the retention window",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "minutes",
					Aliases: []string{"m"},
					Usage:   "Delete keys older than this many minutes (default: IDEMPOTENCY_RETENTION_MINUTES)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many keys would be deleted without deleting",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				ledger, err := container.LedgerUseCase()
				if err != nil {
					return err
				}

				minutes := int(cmd.Int("minutes"))
				if !cmd.IsSet("minutes") {
					minutes = int(cfg.IdempotencyRetention.Minutes())
				}

				return commands.RunPurgeIdempotency(
					ctx,
					ledger,
					container.Logger(),
					commands.DefaultIO().Writer,
					minutes,
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
	}
}
