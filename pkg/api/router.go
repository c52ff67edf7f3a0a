// Package api dispatches API Gateway proxy requests to the catalog
// operations and enforces the admin-group guard on mutating routes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gitlab.connectwisedev.com/catalog-service/models"
	"gitlab.connectwisedev.com/catalog-service/pkg/catalog"
	"gitlab.connectwisedev.com/catalog-service/pkg/config"
	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

// Router dispatches normalized requests to the catalog engine.
type Router struct {
	engine *catalog.Engine
	cfg    *config.APIConfig
}

// NewRouter wires the router over the engine.
func NewRouter(engine *catalog.Engine, cfg *config.APIConfig) *Router {
	return &Router{engine: engine, cfg: cfg}
}

// Handle routes one request. Preflight requests short-circuit before
// authorization; unauthorized mutations are rejected before any
// connection is acquired.
func (r *Router) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := logger.With().
		Str("request_id", requestID(req)).
		Str("method", req.HTTPMethod).
		Str("path", req.Path).
		Logger()

	resp := r.dispatch(ctx, req)
	log.Info().Int("status", resp.StatusCode).Msg("request handled")
	return resp, nil
}

func (r *Router) dispatch(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if req.HTTPMethod == http.MethodOptions {
		return Respond(http.StatusOK, nil, r.cfg.AllowOrigin)
	}

	seg := splitPath(req.Path)

	switch {
	case len(seg) == 1 && seg[0] == "products":
		switch req.HTTPMethod {
		case http.MethodGet:
			return r.handleList(ctx, req)
		case http.MethodPost:
			return r.guarded(req, func() events.APIGatewayProxyResponse {
				return r.handleCreate(ctx, req)
			})
		}

	case len(seg) == 2 && seg[0] == "products":
		id, err := parseID(seg[1])
		if err != nil {
			return RespondError(err, r.cfg.AllowOrigin)
		}
		switch req.HTTPMethod {
		case http.MethodGet:
			return r.handleGet(ctx, id)
		case http.MethodPut:
			return r.guarded(req, func() events.APIGatewayProxyResponse {
				return r.handleUpdate(ctx, id, req)
			})
		case http.MethodDelete:
			return r.guarded(req, func() events.APIGatewayProxyResponse {
				return r.handleDelete(ctx, id)
			})
		}

	case len(seg) == 3 && seg[0] == "products" && seg[2] == "inventory":
		id, err := parseID(seg[1])
		if err != nil {
			return RespondError(err, r.cfg.AllowOrigin)
		}
		if req.HTTPMethod == http.MethodPatch {
			return r.guarded(req, func() events.APIGatewayProxyResponse {
				return r.handlePatch(ctx, id, req)
			})
		}
	}

	return RespondError(fmt.Errorf("%w: no route for %s %s", e.ErrNotFound, req.HTTPMethod, req.Path), r.cfg.AllowOrigin)
}

// guarded runs next only when the request carries the admin group.
func (r *Router) guarded(req events.APIGatewayProxyRequest, next func() events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if err := r.authorize(req); err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}
	return next()
}

func (r *Router) authorize(req events.APIGatewayProxyRequest) error {
	for _, group := range groupClaims(req) {
		if group == r.cfg.AdminGroup {
			return nil
		}
	}
	return fmt.Errorf("%w: %s group membership required", e.ErrForbidden, r.cfg.AdminGroup)
}

func (r *Router) handleList(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	products, err := r.engine.ListProducts(ctx, req.QueryStringParameters["brand"])
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}
	return Respond(http.StatusOK, products, r.cfg.AllowOrigin)
}

func (r *Router) handleGet(ctx context.Context, id int) events.APIGatewayProxyResponse {
	product, err := r.engine.GetProduct(ctx, id)
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}
	return Respond(http.StatusOK, product, r.cfg.AllowOrigin)
}

func (r *Router) handleCreate(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	items, single, err := models.ParseCreateRequest(req.Body)
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}

	ids, err := r.engine.CreateProducts(ctx, items)
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}

	if single {
		product, err := r.engine.GetProduct(ctx, ids[0])
		if err != nil {
			return RespondError(err, r.cfg.AllowOrigin)
		}
		return Respond(http.StatusCreated, product, r.cfg.AllowOrigin)
	}
	return Respond(http.StatusOK, map[string]int{"inserted": len(ids)}, r.cfg.AllowOrigin)
}

func (r *Router) handleUpdate(ctx context.Context, id int, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	in, err := models.ParseUpdateRequest(req.Body)
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}

	product, err := r.engine.UpdateProduct(ctx, id, in)
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}
	return Respond(http.StatusOK, product, r.cfg.AllowOrigin)
}

func (r *Router) handlePatch(ctx context.Context, id int, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	in, err := models.ParsePatchRequest(req.Body)
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}

	level, err := r.engine.PatchInventory(ctx, id, in)
	if err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}
	return Respond(http.StatusOK, level, r.cfg.AllowOrigin)
}

func (r *Router) handleDelete(ctx context.Context, id int) events.APIGatewayProxyResponse {
	if err := r.engine.DeleteProduct(ctx, id); err != nil {
		return RespondError(err, r.cfg.AllowOrigin)
	}
	return Respond(http.StatusOK, map[string]string{"message": "product deleted"}, r.cfg.AllowOrigin)
}

// groupClaims extracts group memberships from the authorizer claims.
// Cognito delivers cognito:groups either as a comma-separated string or
// as a list, depending on the integration.
func groupClaims(req events.APIGatewayProxyRequest) []string {
	raw := rawGroups(req)

	switch v := raw.(type) {
	case string:
		parts := strings.Split(v, ",")
		groups := make([]string, 0, len(parts))
		for _, p := range parts {
			if g := strings.TrimSpace(p); g != "" {
				groups = append(groups, g)
			}
		}
		return groups
	case []any:
		groups := make([]string, 0, len(v))
		for _, item := range v {
			if g, ok := item.(string); ok {
				groups = append(groups, g)
			}
		}
		return groups
	case []string:
		return v
	}
	return nil
}

func rawGroups(req events.APIGatewayProxyRequest) any {
	auth := req.RequestContext.Authorizer
	if auth == nil {
		return nil
	}
	if claims, ok := auth["claims"].(map[string]any); ok {
		if raw, ok := claims["cognito:groups"]; ok {
			return raw
		}
	}
	return auth["cognito:groups"]
}

func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	seg := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			seg = append(seg, p)
		}
	}
	return seg
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, e.Validationf("invalid product id %q", raw)
	}
	return id, nil
}

func requestID(req events.APIGatewayProxyRequest) string {
	if id := req.RequestContext.RequestID; id != "" {
		return id
	}
	return uuid.NewString()
}
