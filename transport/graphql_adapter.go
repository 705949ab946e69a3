package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

const KindGraphQL = "graphql"

// GraphQLAdapter posts entity queries to the platform GraphQL endpoint and
// unwraps the response envelope. Transport-level failures and GraphQL errors
// both surface as external failures so the queue treats them as retryable.
type GraphQLAdapter struct {
	Endpoint string
	REST     *RESTAdapter
}

func NewGraphQLAdapter(endpoint string, rest *RESTAdapter) *GraphQLAdapter {
	if rest == nil {
		rest = NewRESTAdapter(nil)
	}
	return &GraphQLAdapter{
		Endpoint: strings.TrimSpace(endpoint),
		REST:     rest,
	}
}

func (*GraphQLAdapter) Kind() string {
	return KindGraphQL
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

// Query executes one GraphQL operation and returns the raw data document plus
// the response headers. Headers are returned whenever the HTTP exchange
// completed, including failure paths, so callers can honor rate-limit hints.
func (a *GraphQLAdapter) Query(
	ctx context.Context,
	query string,
	variables map[string]any,
) (json.RawMessage, map[string]string, error) {
	if a == nil || a.REST == nil {
		return nil, nil, transportError(
			"transport: graphql adapter requires a rest adapter",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindGraphQL},
		)
	}
	endpoint := strings.TrimSpace(a.Endpoint)
	if endpoint == "" {
		return nil, nil, transportError(
			"transport: graphql endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL},
		)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, transportError(
			"transport: graphql query is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}

	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: marshal graphql payload",
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}

	response, err := a.REST.Do(ctx, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     endpoint,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return nil, response.Headers, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: graphql request failed",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, response.Headers, transportError(
			"transport: graphql endpoint returned non-success status",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":     KindGraphQL,
				"endpoint":    endpoint,
				"status_code": response.StatusCode,
			},
		)
	}

	var envelope graphQLEnvelope
	if err := json.Unmarshal(response.Body, &envelope); err != nil {
		return nil, response.Headers, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode graphql response",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, item := range envelope.Errors {
			if message := strings.TrimSpace(item.Message); message != "" {
				messages = append(messages, message)
			}
		}
		return nil, response.Headers, transportError(
			"transport: graphql operation failed: "+strings.Join(messages, "; "),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	return envelope.Data, response.Headers, nil
}

// Do satisfies core.TransportAdapter for callers that work at the raw
// transport level. The query travels in the request body.
func (a *GraphQLAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	variables, _ := req.Metadata["variables"].(map[string]any)
	data, headers, err := a.Query(ctx, string(req.Body), variables)
	if err != nil {
		return core.TransportResponse{Headers: headers}, err
	}
	return core.TransportResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       data,
		Metadata:   map[string]any{"kind": KindGraphQL},
	}, nil
}

var _ core.TransportAdapter = (*GraphQLAdapter)(nil)
