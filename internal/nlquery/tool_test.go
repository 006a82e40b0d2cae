package nlquery

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2p-rigid/api-test/internal/model"
)

// fakeUserReader serves a fixed set of users. Absence behavior mirrors
// the service layer: GetUserByID and GetUserByEmail error, while
// FindUserByUsername returns (nil, nil).
type fakeUserReader struct {
	users   []model.User
	failAll error
}

func (f *fakeUserReader) GetUserByID(_ context.Context, id int) (*model.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i], nil
		}
	}
	return nil, errors.Errorf("User not found: %d", id)
}

func (f *fakeUserReader) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	for i := range f.users {
		if f.users[i].Email == email {
			return &f.users[i], nil
		}
	}
	return nil, errors.Errorf("User not found: %s", email)
}

func (f *fakeUserReader) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	for i := range f.users {
		if f.users[i].Username == username {
			return &f.users[i], nil
		}
	}
	return nil, nil
}

func (f *fakeUserReader) GetAllUsers(_ context.Context, skip, limit int) ([]model.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return paginate(f.users, skip, limit), nil
}

func (f *fakeUserReader) GetActiveUsers(_ context.Context, skip, limit int) ([]model.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	active := make([]model.User, 0)
	for _, u := range f.users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	return paginate(active, skip, limit), nil
}

func paginate(users []model.User, skip, limit int) []model.User {
	if skip >= len(users) {
		return []model.User{}
	}
	end := skip + limit
	if end > len(users) {
		end = len(users)
	}
	return users[skip:end]
}

func testUsers() []model.User {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.User{
		{ID: 1, Email: "ada@example.com", Username: "ada", Password: "hash1", FirstName: "Ada", IsActive: true, CreatedAt: created, UpdatedAt: created},
		{ID: 2, Email: "bob@example.com", Username: "bob", Password: "hash2", FirstName: "Bob", IsActive: false, CreatedAt: created, UpdatedAt: created},
		{ID: 3, Email: "eve@example.com", Username: "eve", Password: "hash3", FirstName: "Eve", IsActive: true, CreatedAt: created, UpdatedAt: created},
	}
}

func newTestTool(reader UserReader) *QueryTool {
	logger := zerolog.Nop()
	return NewQueryTool(reader, &logger)
}

func TestQueryToolLookupByEmail(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})
	email := "ada@example.com"

	result := tool.Execute(context.Background(), ToolArgs{
		LookupType: "email",
		Email:      &email,
	})

	assert.Equal(t, IntentGetUserByEmail, result.Intent)
	assert.Equal(t, "Found 1 user(s).", result.Summary)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "ada", result.Data[0].Username)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, map[string]any{"email": "ada@example.com"}, result.Filters)
	assert.Nil(t, result.Error)
}

func TestQueryToolLookupByIDMissingUser(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})
	id := 99

	result := tool.Execute(context.Background(), ToolArgs{
		LookupType: "id",
		UserID:     &id,
	})

	assert.Equal(t, IntentClarificationNeeded, result.Intent)
	assert.Equal(t, summaryQueryFailed, result.Summary)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "User not found: 99")
}

func TestQueryToolLookupByUsernameMissingUser(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})
	username := "ghost"

	result := tool.Execute(context.Background(), ToolArgs{
		LookupType: "username",
		Username:   &username,
	})

	// Unlike id and email, a missing username is a valid empty result.
	assert.Equal(t, IntentGetUserByUsername, result.Intent)
	assert.Equal(t, summaryNoUsername, result.Summary)
	assert.Empty(t, result.Data)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, map[string]any{"username": "ghost"}, result.Filters)
	assert.Nil(t, result.Error)
}

func TestQueryToolLookupByIDWithoutUserID(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})

	result := tool.Execute(context.Background(), ToolArgs{LookupType: "id"})

	assert.Equal(t, IntentClarificationNeeded, result.Intent)
	assert.Equal(t, summaryNeedDetail, result.Summary)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "user_id is required when lookup_type='id'")
}

func TestQueryToolListActive(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})
	active := true
	limit := 1

	result := tool.Execute(context.Background(), ToolArgs{
		LookupType: "list",
		ActiveOnly: &active,
		Limit:      &limit,
	})

	assert.Equal(t, IntentListActiveUsers, result.Intent)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "ada", result.Data[0].Username)
	assert.Equal(t, map[string]any{"active_only": true, "skip": 0, "limit": 1}, result.Filters)
}

func TestQueryToolListDefaults(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})

	result := tool.Execute(context.Background(), ToolArgs{LookupType: "list"})

	assert.Equal(t, IntentListUsers, result.Intent)
	assert.Len(t, result.Data, 3)
	assert.Equal(t, map[string]any{"active_only": false, "skip": DefaultSkip, "limit": DefaultLimit}, result.Filters)
}

func TestQueryToolResultNeverContainsPasswords(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})

	result := tool.Execute(context.Background(), ToolArgs{LookupType: "list"})

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "password")
	assert.NotContains(t, string(encoded), "hash1")
}

func TestQueryToolCollaboratorFailure(t *testing.T) {
	tool := newTestTool(&fakeUserReader{failAll: errors.New("connection refused")})

	result := tool.Execute(context.Background(), ToolArgs{LookupType: "list"})

	assert.Equal(t, IntentClarificationNeeded, result.Intent)
	assert.Equal(t, summaryQueryFailed, result.Summary)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "connection refused")
}

func TestQueryToolExecuteMapRejectsUnknownKeys(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})

	result := tool.ExecuteMap(context.Background(), map[string]any{
		"lookup_type": "list",
		"drop_table":  true,
	})

	assert.Equal(t, IntentClarificationNeeded, result.Intent)
	assert.Equal(t, summaryNeedDetail, result.Summary)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "unknown field")
}

func TestQueryToolExecuteMapHappyPath(t *testing.T) {
	tool := newTestTool(&fakeUserReader{users: testUsers()})

	result := tool.ExecuteMap(context.Background(), map[string]any{
		"lookup_type": "id",
		"user_id":     2,
	})

	assert.Equal(t, IntentGetUserByID, result.Intent)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "bob", result.Data[0].Username)
}
