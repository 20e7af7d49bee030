package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/savaki/site-deployer/internal/di"
	"github.com/savaki/site-deployer/internal/hook"
	"github.com/savaki/site-deployer/internal/pipeline"
	"github.com/urfave/cli/v2"
)

// DeployCommand returns the deploy command for running the pipeline locally
func DeployCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "Run the deploy pipeline for a repository commit",
		Description: `Runs the same pipeline the webhook handler runs: fetches the commit's
tarball, renders it with hugo, and publishes the output to a public
bucket named {prefix}-{commit}.

Examples:
  # Deploy a commit of a public repository
  site-deployer deploy --repo savaki/blog --commit 8f3c9d2e1a4b

  # Deploy from a non-default archive host
  site-deployer deploy --repo savaki/blog --commit 8f3c9d2e1a4b \
    --archive-url "https://git.internal/api/repos/savaki/blog/{archive_format}{/ref}"`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "repo",
				Aliases:  []string{"r"},
				Usage:    "Repository full name ({owner}/{repo})",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "commit",
				Aliases:  []string{"c"},
				Usage:    "Head commit SHA to deploy",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "archive-url",
				Usage: "Templated archive URL (defaults to the GitHub API tarball template)",
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
			repo := c.String("repo")
			parts := strings.Split(repo, "/")
			if len(parts) != 2 {
				return fmt.Errorf("invalid repo %q, expected {owner}/{repo}", repo)
			}

			archiveURL := c.String("archive-url")
			if archiveURL == "" {
				archiveURL = fmt.Sprintf("https://api.github.com/repos/%s/{archive_format}{/ref}", repo)
			}

			event := hook.PushEvent{
				Repository: hook.Repository{
					Name:       parts[1],
					FullName:   repo,
					ArchiveURL: archiveURL,
				},
				HeadCommit: hook.Commit{ID: c.String("commit")},
			}

			container, err := di.New(c.String("env"))
			if err != nil {
				return fmt.Errorf("failed to create DI container: %w", err)
			}

			p := di.MustGet[*pipeline.Pipeline](container)

			ctx := logger.WithContext(c.Context)
			result, err := p.Deploy(ctx, event)
			if err != nil {
				return err
			}

			if result.Skipped {
				logger.Info().Str("bucket", result.Bucket).Msg("Commit already deployed")
				return nil
			}

			logger.Info().
				Str("bucket", result.Bucket).
				Int("files", result.Uploaded).
				Msg("Deployed site")
			return nil
		},
	}
}
