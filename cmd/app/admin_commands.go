package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/newsletter/cmd/app/commands"
	"github.com/allisson/newsletter/internal/app"
	"github.com/allisson/newsletter/internal/config"
)

func getAdminCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-user",
			Usage: "Create an admin user allowed to publish newsletters",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Display name",
				},
				&cli.StringFlag{
					Name:     "email",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Login email",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Login password (omit to be prompted)",
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

				users, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateUser(
					ctx,
					users,
					container.Logger(),
					commands.DefaultIO(),
					cmd.String("name"),
					cmd.String("email"),
					cmd.String("password"),
					cmd.String("format"),
				)
			},
		},
	}
}
