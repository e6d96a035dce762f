package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/trustcore/cmd/app/commands"
	"github.com/allisson/trustcore/internal/app"
	"github.com/allisson/trustcore/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
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
			Name:  "run-due-deletions",
			Usage: "Execute deletion requests whose grace period has elapsed",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "actor-id",
					Aliases: []string{"a"},
					Value:   "dsr-worker",
					Usage:   "Actor identity recorded in the audit trail",
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

				orchestrator, err := container.DSROrchestrator()
				if err != nil {
					return err
				}

				deletionRepo, err := container.DeletionRequestRepository()
				if err != nil {
					return err
				}

				return commands.RunDueDeletions(
					ctx,
					orchestrator,
					deletionRepo,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor-id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "verify-audit-logs",
			Usage: "Verify cryptographic integrity of the privacy audit trail",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "resource-type",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Resource type to verify (e.g., user, deletion_request)",
				},
				&cli.StringFlag{
					Name:     "resource-id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Resource identifier to verify",
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

				auditLogger, err := container.AuditLogger()
				if err != nil {
					return err
				}

				return commands.RunVerifyAuditLogs(
					ctx,
					auditLogger,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("resource-type"),
					cmd.String("resource-id"),
					cmd.String("format"),
				)
			},
		},
	}
}
