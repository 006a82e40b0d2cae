package nlquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// geminiMaxTurns bounds the generate/tool-call loop; one tool round
// trip plus a summarising turn is the normal shape.
const geminiMaxTurns = 4

// GeminiRunner drives the Gemini generateContent API as the agent
// runtime: the query tool is declared as a callable function, tool
// calls are executed locally, and every model turn is emitted as an
// event on the run's stream.
type GeminiRunner struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	tool       *QueryTool
	log        zerolog.Logger
}

// NewGeminiRunner constructs a runner bound to the given tool.
func NewGeminiRunner(apiKey, model string, tool *QueryTool, logger *zerolog.Logger) *GeminiRunner {
	return &GeminiRunner{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    geminiEndpoint,
		model:      model,
		apiKey:     apiKey,
		tool:       tool,
		log:        logger.With().Str("runner", "gemini").Logger(),
	}
}

// Gemini wire types, limited to the fields this runner uses.

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// toolDeclaration describes the query tool to the model.
func toolDeclaration() geminiFunctionDeclaration {
	return geminiFunctionDeclaration{
		Name:        ToolName,
		Description: "Read-only users data fetcher.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"lookup_type": map[string]any{
					"type": "string",
					"enum": []string{"id", "email", "username", "list"},
				},
				"user_id":     map[string]any{"type": "integer"},
				"email":       map[string]any{"type": "string"},
				"username":    map[string]any{"type": "string"},
				"active_only": map[string]any{"type": "boolean"},
				"skip":        map[string]any{"type": "integer"},
				"limit":       map[string]any{"type": "integer"},
			},
			"required": []string{"lookup_type"},
		},
	}
}

// Run submits the query as a single user turn and streams the run's
// events. The returned channel is closed once the model stops calling
// the tool or the turn budget is exhausted.
func (r *GeminiRunner) Run(ctx context.Context, session *Session, text string) (<-chan Event, error) {
	events := make(chan Event)

	go func() {
		defer close(events)
		r.run(ctx, session, text, events)
	}()

	return events, nil
}

func (r *GeminiRunner) run(ctx context.Context, session *Session, text string, events chan<- Event) {
	contents := []geminiContent{
		{Role: "user", Parts: []geminiPart{{Text: text}}},
	}

	for turn := 0; turn < geminiMaxTurns; turn++ {
		content, err := r.generate(ctx, contents)
		if err != nil {
			r.log.Error().Err(err).Str("session_id", session.ID).Msg("gemini generate failed")
			return
		}

		event := Event{}
		var call *geminiFunctionCall
		for _, part := range content.Parts {
			if part.Text != "" {
				event.Texts = append(event.Texts, part.Text)
			}
			if part.FunctionCall != nil {
				call = part.FunctionCall
			}
		}
		if len(event.Texts) > 0 {
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}

		if call == nil {
			return
		}

		toolResult := r.tool.ExecuteMap(ctx, call.Args)
		payload, err := toolResult.asMap()
		if err != nil {
			r.log.Error().Err(err).Msg("encoding tool result failed")
			return
		}

		select {
		case events <- Event{ToolResponse: payload}:
		case <-ctx.Done():
			return
		}

		// Feed the call and its result back so the model can produce a
		// closing turn.
		contents = append(contents,
			geminiContent{Role: "model", Parts: []geminiPart{{FunctionCall: call}}},
			geminiContent{Role: "user", Parts: []geminiPart{{
				FunctionResponse: &geminiFunctionResponse{
					Name:     call.Name,
					Response: payload,
				},
			}}},
		)
	}
}

// generate performs one generateContent call and returns the first
// candidate's content.
func (r *GeminiRunner) generate(ctx context.Context, contents []geminiContent) (*geminiContent, error) {
	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: AgentInstruction}}},
		Contents:          contents,
		Tools:             []geminiTool{{FunctionDeclarations: []geminiFunctionDeclaration{toolDeclaration()}}},
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", r.baseURL, r.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gemini HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("gemini response contains no candidates")
	}

	return &parsed.Candidates[0].Content, nil
}

// asMap round-trips a result through JSON into a generic object, the
// shape function responses are exchanged in.
func (r QueryResult) asMap() (map[string]any, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
