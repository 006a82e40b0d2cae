package nlquery

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/p2p-rigid/api-test/internal/config"
)

// Provider selects which model backend resolves a query.
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderOpenRouter Provider = "openrouter"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderOpenRouter:
		return true
	}
	return false
}

// CredentialError signals that the selected provider has no usable
// API key configured.
type CredentialError struct {
	Message string
}

func (e *CredentialError) Error() string {
	return e.Message
}

// Service resolves free-text users queries into structured results,
// routing through the agent runtime or the direct plan builder
// depending on the requested provider.
type Service struct {
	cfg        config.NLQueryConfig
	tool       *QueryTool
	sessions   *SessionService
	runner     Runner
	openRouter *OpenRouterClient
	log        zerolog.Logger
}

// NewService wires the resolution pipeline on top of a user reader.
func NewService(cfg config.NLQueryConfig, users UserReader, logger *zerolog.Logger) *Service {
	tool := NewQueryTool(users, logger)
	return &Service{
		cfg:        cfg,
		tool:       tool,
		sessions:   NewSessionService(),
		runner:     NewGeminiRunner(googleAPIKey(cfg), cfg.GoogleModel, tool, logger),
		openRouter: NewOpenRouterClient(openRouterAPIKey(cfg), cfg.OpenRouterModel, logger),
		log:        logger.With().Str("service", "nlquery").Logger(),
	}
}

// Resolve runs query against the given provider. limit, when set, is
// the caller's already-bounded row cap. The returned error is
// reserved for configuration problems; model and tool failures come
// back as clarification results.
func (s *Service) Resolve(ctx context.Context, query string, limit *int, provider Provider) (QueryResult, error) {
	var result QueryResult

	switch provider {
	case ProviderGoogle:
		if googleAPIKey(s.cfg) == "" {
			return QueryResult{}, &CredentialError{
				Message: "GOOGLE_API_KEY is required for users NL query endpoint",
			}
		}
		result = s.resolveWithAgent(ctx, query, limit)
	case ProviderOpenRouter:
		if openRouterAPIKey(s.cfg) == "" {
			return QueryResult{}, &CredentialError{
				Message: "OPENROUTER_API_KEY is required when provider=openrouter",
			}
		}
		result = s.resolveWithPlan(ctx, query, limit)
	default:
		return QueryResult{}, fmt.Errorf("unknown provider %q", provider)
	}

	if limit != nil {
		result.Filters["limit"] = *limit
	}
	result.Filters["provider"] = string(provider)

	return result, nil
}

func (s *Service) resolveWithAgent(ctx context.Context, query string, limit *int) QueryResult {
	session := s.sessions.CreateSession(AgentAppName, AgentUserID)
	s.log.Debug().Str("session_id", session.ID).Msg("starting agent run")

	events, err := s.runner.Run(ctx, session, query)
	if err != nil {
		return clarification(summaryQueryFailed, err.Error())
	}

	return resolveAgentEvents(events, limit)
}

func (s *Service) resolveWithPlan(ctx context.Context, query string, limit *int) QueryResult {
	plan, final := s.openRouter.BuildPlan(ctx, query, limit)
	if final != nil {
		return *final
	}
	return s.tool.ExecuteMap(ctx, plan)
}

// googleAPIKey returns the configured key, treating the .env template
// placeholder as absent. Falls back to the process environment.
func googleAPIKey(cfg config.NLQueryConfig) string {
	key := cfg.GoogleAPIKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == config.PlaceholderGoogleAPIKey {
		return ""
	}
	return key
}

func openRouterAPIKey(cfg config.NLQueryConfig) string {
	if cfg.OpenRouterAPIKey != "" {
		return cfg.OpenRouterAPIKey
	}
	return os.Getenv("OPENROUTER_API_KEY")
}
