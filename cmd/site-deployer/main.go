package main

import (
	"context"
	"os"

	"github.com/savaki/site-deployer/cmd/site-deployer/commands"
	"github.com/savaki/site-deployer/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "site-deployer",
		Usage: "Static site deployment toolkit",
		Description: `Deploys static sites from repository pushes to public S3 buckets.

This tool provides commands for:
  - Running the deploy pipeline locally against a repository commit
  - Rolling back (deleting) a deployed site bucket
  - Inspecting deploy history for a repository`,
		Commands: []*cli.Command{
			commands.DeployCommand(&logger),
			commands.RollbackCommand(&logger),
			commands.HistoryCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
