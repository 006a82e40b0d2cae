package nlquery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AgentAppName and AgentUserID identify the conversation scope used for
// API-originated natural-language queries.
const (
	AgentAppName = "users_query_app"
	AgentUserID  = "api_user"
)

// AgentInstruction is the fixed system instruction binding the agent to
// read-only users queries.
const AgentInstruction = `You are a read-only users data assistant.

Rules:
- You may only answer queries about users data.
- You may only use the query_users_tool for database access.
- Never create, update, or delete users.
- If the request asks for mutations, refuse with intent out_of_scope.
- If the request is ambiguous, ask for clarification and return intent clarification_needed.
- Never fabricate results.`

// Event is one item of an agent run's ordered stream. An event carries
// zero or more emitted text fragments and at most one structured tool
// result.
type Event struct {
	Texts        []string
	ToolResponse map[string]any
}

// Session is one conversation with the agent runtime. Sessions are
// created fresh per resolution and never reused.
type Session struct {
	ID        string
	AppName   string
	UserID    string
	CreatedAt time.Time
}

// SessionService is the in-process session registry. Safe for
// concurrent use; concurrent resolutions each get their own session and
// never observe each other's.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionService constructs an empty registry.
func NewSessionService() *SessionService {
	return &SessionService{
		sessions: make(map[string]*Session),
	}
}

// CreateSession registers and returns a new session.
func (s *SessionService) CreateSession(appName, userID string) *Session {
	session := &Session{
		ID:        uuid.New().String(),
		AppName:   appName,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get returns a registered session by id.
func (s *SessionService) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Runner drives one agent conversation turn and exposes the runtime's
// ordered event stream. The returned channel is closed when the run
// completes; consumers drain it fully before producing a result.
type Runner interface {
	Run(ctx context.Context, session *Session, text string) (<-chan Event, error)
}

// resolveAgentEvents drains an event stream and resolves it into a
// QueryResult.
//
// Resolution order: a structured tool result wins; otherwise any
// emitted free text is classified heuristically; otherwise the run
// produced nothing usable and a canned clarification is returned.
func resolveAgentEvents(events <-chan Event, limit *int) QueryResult {
	var latestText string
	var toolPayload map[string]any

	for event := range events {
		if len(event.Texts) > 0 {
			latestText = strings.Join(event.Texts, "")
		}
		if event.ToolResponse != nil {
			toolPayload = event.ToolResponse
		}
	}

	if toolPayload != nil {
		result, err := DecodeQueryResultMap(toolPayload)
		if err != nil {
			return clarification(summaryQueryFailed, err.Error())
		}
		if result.Summary == "" && latestText != "" {
			result.Summary = latestText
		}
		return result
	}

	if latestText != "" {
		return resultFromText(latestText, limit)
	}

	return clarification(
		"I could not produce a query result.",
		"No tool output received from agent run.",
	)
}

// resultFromText wraps a classified free-text answer into the result
// shape, echoing the caller's limit when one was supplied.
func resultFromText(text string, limit *int) QueryResult {
	result := NewQueryResult(ClassifyText(text), text)
	if limit != nil {
		result.Filters = map[string]any{"limit": *limit}
	}
	return result
}
