package nlquery

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2p-rigid/api-test/internal/model"
)

func intPtr(v int) *int { return &v }

func TestLookupRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     LookupRequest
		wantOK  bool
		wantErr string
	}{
		{
			name:   "id lookup ok",
			req:    LookupRequest{LookupType: LookupByID, UserID: intPtr(7), Limit: DefaultLimit},
			wantOK: true,
		},
		{
			name:    "id lookup without user_id",
			req:     LookupRequest{LookupType: LookupByID, Limit: DefaultLimit},
			wantErr: "user_id is required when lookup_type='id'",
		},
		{
			name:    "email lookup without email",
			req:     LookupRequest{LookupType: LookupByEmail, Limit: DefaultLimit},
			wantErr: "email is required when lookup_type='email'",
		},
		{
			name:    "username lookup with blank username",
			req:     LookupRequest{LookupType: LookupByUsername, Username: "   ", Limit: DefaultLimit},
			wantErr: "username is required when lookup_type='username'",
		},
		{
			name:    "paging on non-list lookup",
			req:     LookupRequest{LookupType: LookupByID, UserID: intPtr(1), Skip: 5, Limit: DefaultLimit},
			wantErr: "skip/limit are only valid when lookup_type='list'",
		},
		{
			name:    "non-default limit on non-list lookup",
			req:     LookupRequest{LookupType: LookupByEmail, Email: "a@b.com", Limit: 50},
			wantErr: "skip/limit are only valid when lookup_type='list'",
		},
		{
			name:   "list lookup with paging",
			req:    LookupRequest{LookupType: LookupList, Skip: 10, Limit: 50},
			wantOK: true,
		},
		{
			name:    "unknown lookup type",
			req:     LookupRequest{LookupType: "fuzzy", Limit: DefaultLimit},
			wantErr: "must be one of",
		},
		{
			name: "zero user_id fails tag validation",
			req:  LookupRequest{LookupType: LookupByID, UserID: intPtr(0), Limit: DefaultLimit},
		},
		{
			name: "limit above maximum",
			req:  LookupRequest{LookupType: LookupList, Limit: 101},
		},
		{
			name: "malformed email",
			req:  LookupRequest{LookupType: LookupByEmail, Email: "not-an-email", Limit: DefaultLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, validationMessage(err), tt.wantErr)
			}
		})
	}
}

func TestDecodeQueryResultRejectsUnknownFields(t *testing.T) {
	raw := []byte(`{"intent":"list_users","summary":"ok","data":[],"filters":{},"count":0,"error":null,"extra":"nope"}`)

	_, err := DecodeQueryResult(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestDecodeQueryResultRejectsInvalidIntent(t *testing.T) {
	raw := []byte(`{"intent":"delete_everything","summary":"","data":[],"filters":{},"count":0,"error":null}`)

	_, err := DecodeQueryResult(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid intent")
}

func TestDecodeQueryResultNormalizesCollections(t *testing.T) {
	raw := []byte(`{"intent":"clarification_needed","summary":"hm","count":0,"error":null}`)

	result, err := DecodeQueryResult(raw)
	require.NoError(t, err)
	assert.NotNil(t, result.Data)
	assert.NotNil(t, result.Filters)
	assert.Empty(t, result.Data)
}

func TestQueryResultRoundTrip(t *testing.T) {
	user := model.User{
		ID:        3,
		Email:     "ada@example.com",
		Username:  "ada",
		Password:  "secret-hash",
		FirstName: "Ada",
		LastName:  "Lovelace",
		IsActive:  true,
		CreatedAt: time.Date(2026, 1, 15, 9, 30, 0, 123456000, time.UTC),
		UpdatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	result := NewQueryResult(IntentGetUserByID, "Found 1 user(s).")
	result.Data = PublicUsers([]model.User{user})
	result.Filters = map[string]any{"user_id": 3}
	result.Count = 1

	encoded, err := json.Marshal(result)
	require.NoError(t, err)

	decoded, err := DecodeQueryResult(encoded)
	require.NoError(t, err)

	reencoded, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(encoded), string(reencoded))
}

func TestPublicUserOmitsPassword(t *testing.T) {
	user := model.User{
		ID:       1,
		Email:    "x@example.com",
		Username: "x",
		Password: "hash",
	}

	encoded, err := json.Marshal(PublicUser(&user))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(encoded, &fields))
	assert.NotContains(t, fields, "password")
	assert.NotContains(t, string(encoded), "hash")
}

func TestPublicUsersAlwaysNonNil(t *testing.T) {
	out := PublicUsers(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestPublicUserTimestampFormat(t *testing.T) {
	user := model.User{
		CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 890000000, time.UTC),
		UpdatedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}

	pub := PublicUser(&user)
	assert.Equal(t, "2026-03-04T05:06:07.89Z", pub.CreatedAt)
	assert.Equal(t, "2026-03-04T05:06:07Z", pub.UpdatedAt)
}
