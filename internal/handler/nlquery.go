package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/p2p-rigid/api-test/internal/errs"
	"github.com/p2p-rigid/api-test/internal/nlquery"
	"github.com/p2p-rigid/api-test/internal/server"
	"github.com/p2p-rigid/api-test/internal/validation"
)

// QueryResolver resolves free text into a structured users query
// result. *nlquery.Service satisfies it.
type QueryResolver interface {
	Resolve(ctx context.Context, query string, limit *int, provider nlquery.Provider) (nlquery.QueryResult, error)
}

// NLQueryHandler exposes the natural-language users query endpoint.
type NLQueryHandler struct {
	Handler
	resolver QueryResolver
}

func NewNLQueryHandler(s *server.Server, resolver QueryResolver) *NLQueryHandler {
	return &NLQueryHandler{
		Handler:  NewHandler(s),
		resolver: resolver,
	}
}

// QueryUsersRequest is the payload for POST /agents/users/query.
type QueryUsersRequest struct {
	Query    string `json:"query" validate:"required,min=1,max=500"`
	Limit    *int   `json:"limit" validate:"omitempty,gte=1"`
	Provider string `json:"provider" validate:"omitempty,oneof=google openrouter"`
}

func (r *QueryUsersRequest) Validate() error {
	return validation.Struct(r)
}

// QueryUsers resolves a free-text query into a structured result. The
// row cap is bounded here, before the model sees it, so no plan can
// exceed the configured maximum.
func (h *NLQueryHandler) QueryUsers(c echo.Context, req *QueryUsersRequest) (nlquery.QueryResult, error) {
	cfg := h.server.Config.NLQuery

	limit := cfg.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}

	provider := nlquery.Provider(req.Provider)
	if provider == "" {
		provider = nlquery.ProviderGoogle
	}

	result, err := h.resolver.Resolve(c.Request().Context(), req.Query, &limit, provider)
	if err != nil {
		var credErr *nlquery.CredentialError
		if errors.As(err, &credErr) {
			return nlquery.QueryResult{}, &errs.HTTPError{
				Code:     "MISSING_CREDENTIALS",
				Message:  credErr.Message,
				Status:   http.StatusInternalServerError,
				Override: true,
			}
		}
		return nlquery.QueryResult{}, err
	}

	return result, nil
}
