package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2p-rigid/api-test/internal/config"
	"github.com/p2p-rigid/api-test/internal/middleware"
	"github.com/p2p-rigid/api-test/internal/nlquery"
	"github.com/p2p-rigid/api-test/internal/server"
)

// fakeResolver records the arguments of the last Resolve call.
type fakeResolver struct {
	gotQuery    string
	gotLimit    *int
	gotProvider nlquery.Provider
	result      nlquery.QueryResult
	err         error
}

func (f *fakeResolver) Resolve(_ context.Context, query string, limit *int, provider nlquery.Provider) (nlquery.QueryResult, error) {
	f.gotQuery = query
	f.gotLimit = limit
	f.gotProvider = provider
	return f.result, f.err
}

func testServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			NLQuery: config.NLQueryConfig{
				DefaultLimit: 20,
				MaxLimit:     100,
			},
		},
		Logger: &logger,
	}
}

func newQueryEcho(srv *server.Server, resolver QueryResolver) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(srv).GlobalErrorHandler

	h := NewNLQueryHandler(srv, resolver)
	e.POST("/api/v1/agents/users/query", Handle(h.Handler, h.QueryUsers, http.StatusOK,
		func() *QueryUsersRequest { return &QueryUsersRequest{} }))
	return e
}

func postQuery(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agents/users/query", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestQueryUsersDefaults(t *testing.T) {
	resolver := &fakeResolver{result: nlquery.NewQueryResult(nlquery.IntentListUsers, "ok")}
	e := newQueryEcho(testServer(), resolver)

	rec := postQuery(e, `{"query":"list users"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "list users", resolver.gotQuery)
	assert.Equal(t, nlquery.ProviderGoogle, resolver.gotProvider)
	require.NotNil(t, resolver.gotLimit)
	assert.Equal(t, 20, *resolver.gotLimit)
}

func TestQueryUsersBoundsLimit(t *testing.T) {
	resolver := &fakeResolver{result: nlquery.NewQueryResult(nlquery.IntentListUsers, "ok")}
	e := newQueryEcho(testServer(), resolver)

	rec := postQuery(e, `{"query":"list users","limit":500}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resolver.gotLimit)
	assert.Equal(t, 100, *resolver.gotLimit)
}

func TestQueryUsersExplicitProvider(t *testing.T) {
	resolver := &fakeResolver{result: nlquery.NewQueryResult(nlquery.IntentListUsers, "ok")}
	e := newQueryEcho(testServer(), resolver)

	rec := postQuery(e, `{"query":"list users","provider":"openrouter"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nlquery.ProviderOpenRouter, resolver.gotProvider)
}

func TestQueryUsersRejectsUnknownProvider(t *testing.T) {
	resolver := &fakeResolver{}
	e := newQueryEcho(testServer(), resolver)

	rec := postQuery(e, `{"query":"list users","provider":"azure"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, resolver.gotQuery)
}

func TestQueryUsersRejectsEmptyQuery(t *testing.T) {
	resolver := &fakeResolver{}
	e := newQueryEcho(testServer(), resolver)

	rec := postQuery(e, `{"query":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryUsersCredentialErrorIs500(t *testing.T) {
	resolver := &fakeResolver{
		err: &nlquery.CredentialError{Message: "GOOGLE_API_KEY is required for users NL query endpoint"},
	}
	e := newQueryEcho(testServer(), resolver)

	rec := postQuery(e, `{"query":"list users"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MISSING_CREDENTIALS", body["code"])
	assert.Equal(t, "GOOGLE_API_KEY is required for users NL query endpoint", body["message"])
}

func TestQueryUsersPassesResultThrough(t *testing.T) {
	result := nlquery.NewQueryResult(nlquery.IntentOutOfScope, "Read-only users query endpoint.")
	result.Filters = map[string]any{"limit": 20, "provider": "google"}
	resolver := &fakeResolver{result: result}
	e := newQueryEcho(testServer(), resolver)

	rec := postQuery(e, `{"query":"drop all tables"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body nlquery.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, nlquery.IntentOutOfScope, body.Intent)
	assert.Equal(t, "Read-only users query endpoint.", body.Summary)
}
