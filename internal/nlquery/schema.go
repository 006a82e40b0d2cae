// Package nlquery turns unstructured text requests into validated,
// bounded, read-only users queries.
//
// Two resolution strategies are supported: a tool-calling agent runtime
// (Google) and a direct prompt-to-JSON call (OpenRouter). Both funnel
// into the same query tool and produce the same structured result
// shape, so callers never see provider differences.
package nlquery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/p2p-rigid/api-test/internal/model"
	"github.com/p2p-rigid/api-test/internal/validation"
)

// Intent labels what a query result represents. The set is closed:
// decoding a result with any other value fails.
type Intent string

const (
	IntentGetUserByID         Intent = "get_user_by_id"
	IntentGetUserByEmail      Intent = "get_user_by_email"
	IntentGetUserByUsername   Intent = "get_user_by_username"
	IntentListUsers           Intent = "list_users"
	IntentListActiveUsers     Intent = "list_active_users"
	IntentClarificationNeeded Intent = "clarification_needed"
	IntentOutOfScope          Intent = "out_of_scope"
)

// Valid reports whether the intent is one of the closed set.
func (i Intent) Valid() bool {
	switch i {
	case IntentGetUserByID, IntentGetUserByEmail, IntentGetUserByUsername,
		IntentListUsers, IntentListActiveUsers,
		IntentClarificationNeeded, IntentOutOfScope:
		return true
	}
	return false
}

// LookupType selects the dispatch path of the query tool. Closed set;
// dispatch switches on it exhaustively.
type LookupType string

const (
	LookupByID       LookupType = "id"
	LookupByEmail    LookupType = "email"
	LookupByUsername LookupType = "username"
	LookupList       LookupType = "list"
)

// Valid reports whether the lookup type is one of the closed set.
func (t LookupType) Valid() bool {
	switch t {
	case LookupByID, LookupByEmail, LookupByUsername, LookupList:
		return true
	}
	return false
}

// Default paging values for list lookups. Supplying non-default values
// with a non-list lookup type is a validation error.
const (
	DefaultSkip  = 0
	DefaultLimit = 20
	MaxLimit     = 100
)

// UserPublic is the sanitized user projection placed in query results.
// The type has no password field, so the sanitization invariant holds
// by construction.
type UserPublic struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PublicUser projects a persisted user into its sanitized form.
func PublicUser(u *model.User) UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999Z07:00"),
		UpdatedAt: u.UpdatedAt.UTC().Format("2006-01-02T15:04:05.999999Z07:00"),
	}
}

// PublicUsers projects a slice of persisted users. Always returns a
// non-nil slice so results serialize as [] rather than null.
func PublicUsers(users []model.User) []UserPublic {
	out := make([]UserPublic, 0, len(users))
	for i := range users {
		out = append(out, PublicUser(&users[i]))
	}
	return out
}

var lookupValidate = validator.New()

// LookupRequest is the validated input of the query tool.
//
// Identifier fields are required depending on LookupType; ActiveOnly,
// Skip and Limit are only meaningful for list lookups.
type LookupRequest struct {
	LookupType LookupType `json:"lookup_type" validate:"required"`
	UserID     *int       `json:"user_id,omitempty" validate:"omitempty,gte=1"`
	Email      string     `json:"email,omitempty" validate:"omitempty,email"`
	Username   string     `json:"username,omitempty"`
	ActiveOnly bool       `json:"active_only"`
	Skip       int        `json:"skip" validate:"gte=0"`
	Limit      int        `json:"limit" validate:"gte=1,lte=100"`
}

// Validate applies tag rules plus the cross-field requirements that
// tags cannot express.
func (r *LookupRequest) Validate() error {
	if !r.LookupType.Valid() {
		return validation.CustomValidationErrors{{
			Field:   "lookup_type",
			Message: "must be one of: id email username list",
		}}
	}

	if err := lookupValidate.Struct(r); err != nil {
		return err
	}

	var custom validation.CustomValidationErrors

	if r.LookupType == LookupByID && r.UserID == nil {
		custom = append(custom, validation.CustomValidationError{
			Field:   "user_id",
			Message: "user_id is required when lookup_type='id'",
		})
	}

	if r.LookupType == LookupByEmail && r.Email == "" {
		custom = append(custom, validation.CustomValidationError{
			Field:   "email",
			Message: "email is required when lookup_type='email'",
		})
	}

	if r.LookupType == LookupByUsername && strings.TrimSpace(r.Username) == "" {
		custom = append(custom, validation.CustomValidationError{
			Field:   "username",
			Message: "username is required when lookup_type='username'",
		})
	}

	if r.LookupType != LookupList && (r.Skip != DefaultSkip || r.Limit != DefaultLimit) {
		custom = append(custom, validation.CustomValidationError{
			Field:   "skip",
			Message: "skip/limit are only valid when lookup_type='list'",
		})
	}

	if custom != nil {
		return custom
	}
	return nil
}

// QueryResult is the canonical structured output of every resolution
// path. Built once, then read-only.
type QueryResult struct {
	Intent  Intent         `json:"intent"`
	Summary string         `json:"summary"`
	Data    []UserPublic   `json:"data"`
	Filters map[string]any `json:"filters"`
	Count   int            `json:"count"`
	Error   *string        `json:"error"`
}

// NewQueryResult builds a result with empty (non-nil) data and filters.
func NewQueryResult(intent Intent, summary string) QueryResult {
	return QueryResult{
		Intent:  intent,
		Summary: summary,
		Data:    []UserPublic{},
		Filters: map[string]any{},
	}
}

// clarification builds the terminal failure/ambiguity result shape.
func clarification(summary, errMsg string) QueryResult {
	result := NewQueryResult(IntentClarificationNeeded, summary)
	result.Error = &errMsg
	return result
}

// normalize fills the collection fields so a decoded result always has
// non-nil data and filters.
func (r *QueryResult) normalize() {
	if r.Data == nil {
		r.Data = []UserPublic{}
	}
	if r.Filters == nil {
		r.Filters = map[string]any{}
	}
}

// DecodeQueryResult strictly decodes a QueryResult from JSON bytes.
//
// The schema is closed: unknown fields are a decoding error, not
// silently dropped, and the intent must belong to the closed set.
func DecodeQueryResult(data []byte) (QueryResult, error) {
	var result QueryResult

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return QueryResult{}, fmt.Errorf("decoding query result: %w", err)
	}

	if !result.Intent.Valid() {
		return QueryResult{}, fmt.Errorf("decoding query result: invalid intent %q", result.Intent)
	}

	result.normalize()
	return result, nil
}

// DecodeQueryResultMap strictly decodes a QueryResult from an already
// parsed JSON object, applying the same closed-schema rules as
// DecodeQueryResult.
func DecodeQueryResultMap(payload map[string]any) (QueryResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return QueryResult{}, fmt.Errorf("encoding query result payload: %w", err)
	}
	return DecodeQueryResult(raw)
}
