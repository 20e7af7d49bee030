package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/site-deployer/internal/di"
	"github.com/savaki/site-deployer/internal/services"
	"github.com/urfave/cli/v2"
)

// RollbackCommand returns the rollback command for deleting a site bucket
func RollbackCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Delete a deployed site bucket",
		Description: `Deletes the destination bucket for a deploy, the same operation the
pipeline performs when a deploy fails after bucket creation.

Example:
  site-deployer rollback --bucket sites-8f3c9d2e1a4b`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "bucket",
				Aliases:  []string{"b"},
				Usage:    "Bucket name to delete",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment (dev, stg, or prd)",
				Value:   "dev",
				EnvVars: []string{"ENV"},
			},
		},
		Action: func(c *cli.Context) error {
			container, err := di.New(c.String("env"))
			if err != nil {
				return fmt.Errorf("failed to create DI container: %w", err)
			}

			storage := di.MustGet[*services.StorageService](container)

			ctx := logger.WithContext(c.Context)
			bucket := c.String("bucket")
			if err := storage.DeleteBucket(ctx, bucket); err != nil {
				return err
			}

			logger.Info().Str("bucket", bucket).Msg("Deleted bucket")
			return nil
		},
	}
}
