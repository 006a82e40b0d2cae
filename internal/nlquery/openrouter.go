package nlquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// openRouterSystemPrompt constrains the model to emit either tool
// arguments or one of two canned refusal results, as bare JSON.
const openRouterSystemPrompt = `Convert the user request into a JSON object for a read-only users query tool. ` +
	`Allowed lookup_type values: id, email, username, list. ` +
	`Only include these keys: lookup_type, user_id, email, username, active_only, skip, limit. ` +
	`If request is outside read-only users queries, return exactly: ` +
	`{"intent":"out_of_scope","summary":"Read-only users query endpoint.","data":[],"filters":{},"count":0,"error":null}. ` +
	`For ambiguous requests, return exactly: ` +
	`{"intent":"clarification_needed","summary":"Please clarify your users query.","data":[],"filters":{},"count":0,"error":null}. ` +
	`Otherwise return only a single JSON object for tool args.`

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// OpenRouterClient turns a free-text query into a tool-args plan with
// a single chat completion call, no agent loop involved.
type OpenRouterClient struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
	log        zerolog.Logger
}

// NewOpenRouterClient constructs a client for the given model.
func NewOpenRouterClient(apiKey, model string, logger *zerolog.Logger) *OpenRouterClient {
	return &OpenRouterClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		endpoint:   openRouterEndpoint,
		model:      model,
		apiKey:     apiKey,
		log:        logger.With().Str("client", "openrouter").Logger(),
	}
}

type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
}

// BuildPlan asks the model for tool args matching the query. On
// success the returned map is the plan to execute; otherwise the
// returned result is final (a canned refusal from the model, or a
// clarification describing the transport or parse failure) and must
// be returned to the caller as-is.
func (c *OpenRouterClient) BuildPlan(ctx context.Context, query string, limit *int) (map[string]any, *QueryResult) {
	limitText := "null"
	if limit != nil {
		limitText = fmt.Sprintf("%d", *limit)
	}

	reqBody := openRouterRequest{
		Model: c.model,
		Messages: []openRouterMessage{
			{Role: "system", Content: openRouterSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("query=%s\nlimit=%s", query, limitText)},
		},
		Temperature: 0,
	}

	content, failed := c.complete(ctx, reqBody)
	if failed != nil {
		return nil, failed
	}

	parsed, ok := parseJSONContent(content)
	if !ok {
		result := clarification("Could not parse OpenRouter response.", "Expected JSON object in model output.")
		return nil, &result
	}

	// A full result object (canned refusal) passes through untouched;
	// anything else is treated as tool args.
	if _, isResult := parsed["intent"]; isResult {
		result, err := DecodeQueryResultMap(parsed)
		if err != nil {
			failure := clarification("Invalid structured response from OpenRouter.", err.Error())
			return nil, &failure
		}
		return nil, &result
	}

	if _, hasLimit := parsed["limit"]; !hasLimit && limit != nil {
		parsed["limit"] = *limit
	}

	return parsed, nil
}

func (c *OpenRouterClient) complete(ctx context.Context, reqBody openRouterRequest) (string, *QueryResult) {
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		result := clarification("OpenRouter request failed.", err.Error())
		return "", &result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		result := clarification("OpenRouter request failed.", err.Error())
		return "", &result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("openrouter request failed")
		result := clarification("OpenRouter request failed.", err.Error())
		return "", &result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result := clarification("OpenRouter request failed.", err.Error())
		return "", &result
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result := clarification(
			"OpenRouter request failed.",
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)),
		)
		return "", &result
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		result := clarification("OpenRouter returned an invalid response.", err.Error())
		return "", &result
	}
	if len(parsed.Choices) == 0 {
		result := clarification("OpenRouter returned an invalid response.", "Response contains no choices.")
		return "", &result
	}

	return parsed.Choices[0].Message.Content, nil
}

// parseJSONContent extracts a JSON object from model output, trying
// the raw content first and a fenced code block second.
func parseJSONContent(content string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(content)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed, true
	}

	match := fencedJSONPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(match[1]), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
