package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

// errorBody is the uniform JSON error shape. Error carries the
// best-effort cause on 500s only.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func corsHeaders(allowOrigin string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  allowOrigin,
		"Access-Control-Allow-Methods": "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
	}
}

// Respond serializes payload into an API Gateway response. A nil payload
// produces an empty body with the given status.
func Respond(status int, payload any, allowOrigin string) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    corsHeaders(allowOrigin),
	}
	if payload == nil {
		return resp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		resp.StatusCode = http.StatusInternalServerError
		resp.Body = `{"message": "failed to format response"}`
		return resp
	}
	resp.Body = string(body)
	return resp
}

// RespondError maps an error to its transport status per the service
// taxonomy: validation 400, forbidden 403, not found 404, everything
// else (config and store failures included) 500.
func RespondError(err error, allowOrigin string) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, e.ErrValidation):
		return Respond(http.StatusBadRequest, errorBody{Message: err.Error()}, allowOrigin)
	case errors.Is(err, e.ErrForbidden):
		return Respond(http.StatusForbidden, errorBody{Message: err.Error()}, allowOrigin)
	case errors.Is(err, e.ErrNotFound):
		return Respond(http.StatusNotFound, errorBody{Message: err.Error()}, allowOrigin)
	default:
		return Respond(http.StatusInternalServerError, errorBody{
			Message: "internal server error",
			Error:   err.Error(),
		}, allowOrigin)
	}
}
