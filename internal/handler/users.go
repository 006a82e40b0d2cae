package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/p2p-rigid/api-test/internal/model"
	"github.com/p2p-rigid/api-test/internal/server"
	"github.com/p2p-rigid/api-test/internal/service"
	"github.com/p2p-rigid/api-test/internal/validation"
)

// UserHandler exposes the users CRUD endpoints.
type UserHandler struct {
	Handler
	users *service.UserService
}

func NewUserHandler(s *server.Server, users *service.UserService) *UserHandler {
	return &UserHandler{
		Handler: NewHandler(s),
		users:   users,
	}
}

// UserResponse is the public representation of a user. The password
// hash never leaves the service boundary.
type UserResponse struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(users []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out
}

// CreateUserRequest is the payload for POST /users.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

func (r *CreateUserRequest) Validate() error {
	return validation.Struct(r)
}

func (h *UserHandler) CreateUser(c echo.Context, req *CreateUserRequest) (UserResponse, error) {
	user, err := h.users.CreateUser(c.Request().Context(), service.CreateUserParams{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

// GetUserRequest carries the path parameter for single-user reads.
type GetUserRequest struct {
	ID int `param:"id" validate:"required,gte=1"`
}

func (r *GetUserRequest) Validate() error {
	return validation.Struct(r)
}

func (h *UserHandler) GetUser(c echo.Context, req *GetUserRequest) (UserResponse, error) {
	user, err := h.users.GetUserByID(c.Request().Context(), req.ID)
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

// ListUsersRequest carries pagination for collection reads.
type ListUsersRequest struct {
	Skip       int  `query:"skip" validate:"gte=0"`
	Limit      int  `query:"limit" validate:"gte=0,lte=100"`
	ActiveOnly bool `query:"active_only"`
}

func (r *ListUsersRequest) Validate() error {
	return validation.Struct(r)
}

// ListUsersResponse wraps the collection with its paging echo.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
	Count int            `json:"count"`
}

func (h *UserHandler) ListUsers(c echo.Context, req *ListUsersRequest) (ListUsersResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 20
	}

	var (
		users []model.User
		err   error
	)
	if req.ActiveOnly {
		users, err = h.users.GetActiveUsers(c.Request().Context(), req.Skip, limit)
	} else {
		users, err = h.users.GetAllUsers(c.Request().Context(), req.Skip, limit)
	}
	if err != nil {
		return ListUsersResponse{}, err
	}

	out := toUserResponses(users)
	return ListUsersResponse{
		Users: out,
		Skip:  req.Skip,
		Limit: limit,
		Count: len(out),
	}, nil
}

// UpdateUserRequest is the payload for PATCH /users/:id. Pointer
// fields distinguish "omitted" from zero values.
type UpdateUserRequest struct {
	ID        int     `param:"id" validate:"required,gte=1"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=50"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=128"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	IsActive  *bool   `json:"is_active"`
}

func (r *UpdateUserRequest) Validate() error {
	return validation.Struct(r)
}

func (h *UserHandler) UpdateUser(c echo.Context, req *UpdateUserRequest) (UserResponse, error) {
	user, err := h.users.UpdateUser(c.Request().Context(), req.ID, service.UpdateUserParams{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

// DeleteUserRequest carries the path parameter for deactivation.
type DeleteUserRequest struct {
	ID int `param:"id" validate:"required,gte=1"`
}

func (r *DeleteUserRequest) Validate() error {
	return validation.Struct(r)
}

func (h *UserHandler) DeleteUser(c echo.Context, req *DeleteUserRequest) error {
	return h.users.DeleteUser(c.Request().Context(), req.ID)
}
