package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"gitlab.connectwisedev.com/catalog-service/pkg/api"
	"gitlab.connectwisedev.com/catalog-service/pkg/catalog"
	"gitlab.connectwisedev.com/catalog-service/pkg/config"
	"gitlab.connectwisedev.com/catalog-service/pkg/database"
	"gitlab.connectwisedev.com/catalog-service/pkg/secrets"
)

var router *api.Router

func init() {
	config.LoadEnv() // Load environment variables first

	// Wiring only; the database connection itself is established
	// lazily on first use and cached across invocations.
	resolver := secrets.NewResolver(config.LoadDB())
	manager := database.NewManager(resolver)
	engine := catalog.NewEngine(manager)
	router = api.NewRouter(engine, config.LoadAPI())
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return router.Handle(ctx, request)
}

func main() {
	lambda.Start(handler)
}
