package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"gitlab.connectwisedev.com/catalog-service/pkg/api"
	"gitlab.connectwisedev.com/catalog-service/pkg/config"
	"gitlab.connectwisedev.com/catalog-service/pkg/images"
)

var (
	logger      = zerolog.New(os.Stdout).With().Timestamp().Str("component", "getImages").Logger()
	lister      *images.Lister
	allowOrigin string
)

func init() {
	config.LoadEnv() // Load environment variables first

	allowOrigin = config.LoadAPI().AllowOrigin

	var err error
	lister, err = images.NewLister(config.LoadImages())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize image lister")
	}
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.HTTPMethod == http.MethodOptions {
		return api.Respond(http.StatusOK, nil, allowOrigin), nil
	}

	urls, err := lister.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list images")
		return api.RespondError(err, allowOrigin), nil
	}
	return api.Respond(http.StatusOK, urls, allowOrigin), nil
}

func main() {
	lambda.Start(handler)
}
