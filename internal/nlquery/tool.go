package nlquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p2p-rigid/api-test/internal/model"
	"github.com/p2p-rigid/api-test/internal/validation"
)

// UserReader is the read-only surface of the users collaborator the
// query tool dispatches against. *service.UserService satisfies it.
//
// GetUserByID and GetUserByEmail report absence as an error;
// FindUserByUsername reports it as (nil, nil).
type UserReader interface {
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetAllUsers(ctx context.Context, skip, limit int) ([]model.User, error)
	GetActiveUsers(ctx context.Context, skip, limit int) ([]model.User, error)
}

// ToolArgs are the unvalidated caller-supplied primitives of a query
// tool invocation. Pointer fields distinguish "omitted" from zero so
// defaults can be applied before validation.
type ToolArgs struct {
	LookupType string  `json:"lookup_type"`
	UserID     *int    `json:"user_id"`
	Email      *string `json:"email"`
	Username   *string `json:"username"`
	ActiveOnly *bool   `json:"active_only"`
	Skip       *int    `json:"skip"`
	Limit      *int    `json:"limit"`
}

// ToolName is the function name the agent runtime sees.
const ToolName = "query_users_tool"

const (
	summaryNeedDetail  = "I need a bit more detail to run that users query."
	summaryQueryFailed = "I could not complete that query."
	summaryNoUsername  = "No user found for that username."
)

// QueryTool validates lookup requests and executes them against the
// users collaborator. It never mutates state: the only collaborator it
// holds is the read-only UserReader, so writes are impossible by
// construction.
type QueryTool struct {
	users UserReader
	log   zerolog.Logger
}

// NewQueryTool constructs a QueryTool.
func NewQueryTool(users UserReader, logger *zerolog.Logger) *QueryTool {
	return &QueryTool{
		users: users,
		log:   logger.With().Str("tool", ToolName).Logger(),
	}
}

// request builds a LookupRequest from raw arguments, applying defaults
// for omitted fields.
func (args ToolArgs) request() LookupRequest {
	req := LookupRequest{
		LookupType: LookupType(args.LookupType),
		UserID:     args.UserID,
		ActiveOnly: false,
		Skip:       DefaultSkip,
		Limit:      DefaultLimit,
	}
	if args.Email != nil {
		req.Email = *args.Email
	}
	if args.Username != nil {
		req.Username = *args.Username
	}
	if args.ActiveOnly != nil {
		req.ActiveOnly = *args.ActiveOnly
	}
	if args.Skip != nil {
		req.Skip = *args.Skip
	}
	if args.Limit != nil {
		req.Limit = *args.Limit
	}
	return req
}

// Execute validates the arguments and dispatches the lookup.
//
// It always returns a schema-conformant QueryResult: validation
// failures and collaborator errors are converted into terminal
// clarification_needed results and never escape as Go errors.
func (t *QueryTool) Execute(ctx context.Context, args ToolArgs) QueryResult {
	req := args.request()
	if err := req.Validate(); err != nil {
		t.log.Debug().Err(err).Str("lookup_type", args.LookupType).Msg("lookup validation failed")
		return clarification(summaryNeedDetail, validationMessage(err))
	}

	switch req.LookupType {
	case LookupByID:
		user, err := t.users.GetUserByID(ctx, *req.UserID)
		if err != nil {
			// Not-found handling is asymmetric on purpose: id and email
			// lookups surface the collaborator's not-found error as a
			// clarification result, while the username path below
			// reports an empty-but-valid result. Likely an
			// inconsistency, but callers observe both shapes, so both
			// are preserved as-is.
			return t.dispatchError(err)
		}
		return t.found(IntentGetUserByID, []model.User{*user}, map[string]any{
			"user_id": *req.UserID,
		})

	case LookupByEmail:
		user, err := t.users.GetUserByEmail(ctx, req.Email)
		if err != nil {
			return t.dispatchError(err)
		}
		return t.found(IntentGetUserByEmail, []model.User{*user}, map[string]any{
			"email": req.Email,
		})

	case LookupByUsername:
		user, err := t.users.FindUserByUsername(ctx, req.Username)
		if err != nil {
			return t.dispatchError(err)
		}
		if user == nil {
			result := NewQueryResult(IntentGetUserByUsername, summaryNoUsername)
			result.Filters = map[string]any{"username": req.Username}
			return result
		}
		return t.found(IntentGetUserByUsername, []model.User{*user}, map[string]any{
			"username": req.Username,
		})

	case LookupList:
		var (
			users  []model.User
			err    error
			intent Intent
		)
		if req.ActiveOnly {
			users, err = t.users.GetActiveUsers(ctx, req.Skip, req.Limit)
			intent = IntentListActiveUsers
		} else {
			users, err = t.users.GetAllUsers(ctx, req.Skip, req.Limit)
			intent = IntentListUsers
		}
		if err != nil {
			return t.dispatchError(err)
		}
		return t.found(intent, users, map[string]any{
			"active_only": req.ActiveOnly,
			"skip":        req.Skip,
			"limit":       req.Limit,
		})

	default:
		// Unreachable: Validate rejects unknown lookup types.
		return clarification(summaryNeedDetail, fmt.Sprintf("unknown lookup_type %q", req.LookupType))
	}
}

// ExecuteMap decodes raw argument objects (as produced by a model) and
// executes them. The decode is strict: unknown keys are a validation
// failure, keeping the tool the single source of truth for arguments.
func (t *QueryTool) ExecuteMap(ctx context.Context, rawArgs map[string]any) QueryResult {
	encoded, err := json.Marshal(rawArgs)
	if err != nil {
		return clarification(summaryNeedDetail, err.Error())
	}

	var args ToolArgs
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return clarification(summaryNeedDetail, err.Error())
	}

	return t.Execute(ctx, args)
}

// found assembles the happy-path result: records pass through the
// sanitizing projection unconditionally before entering data.
func (t *QueryTool) found(intent Intent, users []model.User, filters map[string]any) QueryResult {
	data := PublicUsers(users)

	result := NewQueryResult(intent, fmt.Sprintf("Found %d user(s).", len(data)))
	result.Data = data
	result.Filters = filters
	result.Count = len(data)

	t.log.Debug().Str("intent", string(intent)).Int("count", result.Count).Msg("query executed")
	return result
}

// dispatchError converts any collaborator failure into the terminal
// clarification result; no exception crosses the tool boundary.
func (t *QueryTool) dispatchError(err error) QueryResult {
	t.log.Warn().Err(err).Msg("users query failed")
	return clarification(summaryQueryFailed, err.Error())
}

// validationMessage flattens a validation error into a single string
// for the result's error field.
func validationMessage(err error) string {
	msg, fieldErrors := validation.ExtractValidationError(err)
	if len(fieldErrors) == 0 {
		return err.Error()
	}
	out := msg
	for _, fe := range fieldErrors {
		out += fmt.Sprintf("; %s: %s", fe.Field, fe.Error)
	}
	return out
}
