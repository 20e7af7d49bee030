package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/savaki/site-deployer/internal/dao/deploydao"
	"github.com/savaki/site-deployer/internal/di"
	"github.com/urfave/cli/v2"
)

// HistoryCommand returns the history command for listing deploy records
func HistoryCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List deploy history for a repository",
		Description: `Lists the recorded deploy attempts for a repository from the deploy
history table. Requires the deploy-table parameter (or DEPLOY_TABLE) to
be configured.

Example:
  site-deployer history --repo savaki/blog`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "repo",
				Aliases:  []string{"r"},
				Usage:    "Repository full name ({owner}/{repo})",
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

			dao := di.MustGet[*deploydao.DAO](container)
			if dao == nil {
				return fmt.Errorf("deploy history is not configured, set the deploy-table parameter")
			}

			ctx := logger.WithContext(c.Context)
			records, err := dao.Query(ctx, deploydao.NewPK(c.String("repo")))
			if err != nil {
				return err
			}

			if len(records) == 0 {
				logger.Info().Str("repo", c.String("repo")).Msg("No deploys recorded")
				return nil
			}

			for _, record := range records {
				event := logger.Info().
					Str("commit", record.CommitHash).
					Str("bucket", record.Bucket).
					Str("status", string(record.Status)).
					Time("created_at", time.Unix(record.CreatedAt, 0))
				if record.ErrorMsg != nil {
					event = event.Str("error", *record.ErrorMsg)
				}
				event.Msg("Deploy")
			}
			return nil
		},
	}
}
