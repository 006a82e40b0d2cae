package nlquery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenRouterClient(t *testing.T, handler http.HandlerFunc) *OpenRouterClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	client := NewOpenRouterClient("test-key", "openrouter/auto", &logger)
	client.endpoint = srv.URL
	return client
}

func chatCompletion(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestOpenRouterBuildPlanToolArgs(t *testing.T) {
	var gotBody openRouterRequest
	client := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		chatCompletion(`{"lookup_type":"email","email":"ada@example.com"}`)(w, r)
	})

	limit := 5
	plan, final := client.BuildPlan(context.Background(), "find ada's account", &limit)

	require.Nil(t, final)
	assert.Equal(t, "email", plan["lookup_type"])
	assert.Equal(t, "ada@example.com", plan["email"])

	// The caller's limit is injected only when the model left it out.
	assert.Equal(t, 5, plan["limit"])

	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "query=find ada's account\nlimit=5", gotBody.Messages[1].Content)
	assert.Zero(t, gotBody.Temperature)
}

func TestOpenRouterBuildPlanKeepsModelLimit(t *testing.T) {
	client := newTestOpenRouterClient(t, chatCompletion(`{"lookup_type":"list","limit":3}`))

	limit := 50
	plan, final := client.BuildPlan(context.Background(), "list three users", &limit)

	require.Nil(t, final)
	assert.Equal(t, float64(3), plan["limit"])
}

func TestOpenRouterBuildPlanCannedRefusal(t *testing.T) {
	refusal := `{"intent":"out_of_scope","summary":"Read-only users query endpoint.","data":[],"filters":{},"count":0,"error":null}`
	client := newTestOpenRouterClient(t, chatCompletion(refusal))

	plan, final := client.BuildPlan(context.Background(), "delete everyone", nil)

	assert.Nil(t, plan)
	require.NotNil(t, final)
	assert.Equal(t, IntentOutOfScope, final.Intent)
	assert.Equal(t, "Read-only users query endpoint.", final.Summary)
	assert.Nil(t, final.Error)
}

func TestOpenRouterBuildPlanFencedJSON(t *testing.T) {
	content := "Here you go:\n```json\n{\"lookup_type\": \"username\", \"username\": \"ada\"}\n```"
	client := newTestOpenRouterClient(t, chatCompletion(content))

	plan, final := client.BuildPlan(context.Background(), "look up ada", nil)

	require.Nil(t, final)
	assert.Equal(t, "username", plan["lookup_type"])
	assert.Equal(t, "ada", plan["username"])
}

func TestOpenRouterBuildPlanHTTPError(t *testing.T) {
	client := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	plan, final := client.BuildPlan(context.Background(), "list users", nil)

	assert.Nil(t, plan)
	require.NotNil(t, final)
	assert.Equal(t, IntentClarificationNeeded, final.Intent)
	assert.Equal(t, "OpenRouter request failed.", final.Summary)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "HTTP 429")
}

func TestOpenRouterBuildPlanMalformedResponse(t *testing.T) {
	client := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	plan, final := client.BuildPlan(context.Background(), "list users", nil)

	assert.Nil(t, plan)
	require.NotNil(t, final)
	assert.Equal(t, "OpenRouter returned an invalid response.", final.Summary)
}

func TestOpenRouterBuildPlanNoChoices(t *testing.T) {
	client := newTestOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, final := client.BuildPlan(context.Background(), "list users", nil)

	require.NotNil(t, final)
	assert.Equal(t, "OpenRouter returned an invalid response.", final.Summary)
}

func TestOpenRouterBuildPlanUnparseableContent(t *testing.T) {
	client := newTestOpenRouterClient(t, chatCompletion("I cannot express that as JSON, sorry."))

	plan, final := client.BuildPlan(context.Background(), "list users", nil)

	assert.Nil(t, plan)
	require.NotNil(t, final)
	assert.Equal(t, "Could not parse OpenRouter response.", final.Summary)
	require.NotNil(t, final.Error)
	assert.Equal(t, "Expected JSON object in model output.", *final.Error)
}

func TestOpenRouterBuildPlanInvalidResultObject(t *testing.T) {
	// Carries an intent key but breaks the closed result schema.
	client := newTestOpenRouterClient(t, chatCompletion(`{"intent":"out_of_scope","bogus":true}`))

	_, final := client.BuildPlan(context.Background(), "weird", nil)

	require.NotNil(t, final)
	assert.Equal(t, "Invalid structured response from OpenRouter.", final.Summary)
}

func TestParseJSONContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantOK  bool
	}{
		{"bare object", `{"a":1}`, true},
		{"surrounding whitespace", "  {\"a\":1}\n", true},
		{"fenced with language tag", "```json\n{\"a\":1}\n```", true},
		{"fenced without language tag", "```\n{\"a\":1}\n```", true},
		{"prose only", "no json here", false},
		{"fenced non-object", "```json\n[1,2]\n```", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseJSONContent(tt.content)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
