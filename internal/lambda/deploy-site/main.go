package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/savaki/site-deployer/internal/di"
	"github.com/savaki/site-deployer/internal/hook"
	"github.com/savaki/site-deployer/internal/pipeline"
	"github.com/urfave/cli/v2"
)

// deployer is the slice of the pipeline the handler drives.
type deployer interface {
	Deploy(ctx context.Context, event hook.PushEvent) (*pipeline.Result, error)
}

type Handler struct {
	pipeline deployer
}

func NewHandler(p deployer) *Handler {
	return &Handler{pipeline: p}
}

// HandleRequest processes one webhook delivery. Malformed payloads get a 400
// with no further work; a redelivered commit gets a 204; a completed deploy
// gets a 201. Pipeline failures are returned so the invoker sees the
// original error.
func (h *Handler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := zerolog.Ctx(ctx)

	event, err := hook.Parse(request.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejecting malformed webhook payload")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
	}

	logger.Info().
		Str("repo", event.Repository.FullName).
		Str("commit", event.HeadCommit.ID).
		Msg("Processing push event")

	result, err := h.pipeline.Deploy(ctx, event)
	if err != nil {
		logger.Error().
			Err(err).
			Str("repo", event.Repository.FullName).
			Str("commit", event.HeadCommit.ID).
			Msg("Deploy failed")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, err
	}

	if result.Skipped {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusCreated}, nil
}

func main() {
	logger := di.ProvideLogger().With().Str("lambda", "deploy-site").Logger()

	// Get environment from ENV or ENVIRONMENT variable
	env := os.Getenv("ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "dev"
	}

	container, err := di.New(env)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DI container")
		os.Exit(1)
	}

	handler := NewHandler(di.MustGet[*pipeline.Pipeline](container))

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		// Wrap handler to inject logger into context
		wrappedHandler := func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			ctx = logger.WithContext(ctx)
			return handler.HandleRequest(ctx, request)
		}
		lambda.Start(wrappedHandler)
		return
	}

	// CLI mode
	app := &cli.App{
		Name:  "deploy-site",
		Usage: "Simulate a webhook delivery to run the deploy pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "body",
				Usage:    "Raw webhook payload JSON",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			request := events.APIGatewayProxyRequest{Body: c.String("body")}

			ctx := logger.WithContext(context.Background())
			response, err := handler.HandleRequest(ctx, request)
			if err != nil {
				return err
			}

			logger.Info().Int("status", response.StatusCode).Msg("Handler completed")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
