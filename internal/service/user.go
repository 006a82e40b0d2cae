package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p2p-rigid/api-test/internal/errs"
	"github.com/p2p-rigid/api-test/internal/model"
)

// Error codes returned by the user service.
var (
	userNotFoundCode      = "USER_NOT_FOUND"
	userAlreadyExistsCode = "USER_ALREADY_EXISTS"
)

// NewUserNotFoundError builds the canonical not-found error for a user
// identified by the given descriptor, e.g. "id=5" or "email=a@b.c".
func NewUserNotFoundError(identifier string) *errs.HTTPError {
	return errs.NewNotFoundError(fmt.Sprintf("User not found: %s", identifier), true, &userNotFoundCode)
}

// NewUserAlreadyExistsError builds the canonical conflict error when a
// unique field is already taken.
func NewUserAlreadyExistsError(field, value string) *errs.HTTPError {
	return errs.NewConflictError(
		fmt.Sprintf("User with %s='%s' already exists", field, value),
		true, &userAlreadyExistsCode)
}

// UserStore is the data access surface the user service needs.
// *repository.UserRepository satisfies it. Single-row fetches return
// (nil, nil) on no match.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, skip, limit int) ([]model.User, error)
	ListActive(ctx context.Context, skip, limit int) ([]model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, id int, fields model.UserUpdate) (*model.User, error)
}

// UserService implements user business rules on top of a UserStore.
type UserService struct {
	store UserStore
	log   zerolog.Logger
}

// NewUserService constructs a UserService.
func NewUserService(store UserStore, logger *zerolog.Logger) *UserService {
	return &UserService{
		store: store,
		log:   logger.With().Str("service", "users").Logger(),
	}
}

// CreateUserParams carries the fields needed to create a user.
type CreateUserParams struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// CreateUser creates a new user after checking email and username
// uniqueness. New users start active.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error) {
	s.log.Info().Str("email", params.Email).Str("username", params.Username).Msg("creating user")

	if taken, err := s.store.EmailExists(ctx, params.Email); err != nil {
		return nil, err
	} else if taken {
		s.log.Warn().Str("email", params.Email).Msg("email already exists")
		return nil, NewUserAlreadyExistsError("email", params.Email)
	}

	if taken, err := s.store.UsernameExists(ctx, params.Username); err != nil {
		return nil, err
	} else if taken {
		s.log.Warn().Str("username", params.Username).Msg("username already exists")
		return nil, NewUserAlreadyExistsError("username", params.Username)
	}

	user, err := s.store.Create(ctx, &model.User{
		Email:     params.Email,
		Username:  params.Username,
		Password:  params.Password,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		IsActive:  true,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("user_id", user.ID).Msg("user created successfully")
	return user, nil
}

// GetUserByID returns the user with the given id, or a not-found error.
func (s *UserService) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.log.Warn().Int("user_id", id).Msg("user not found")
		return nil, NewUserNotFoundError(fmt.Sprintf("id=%d", id))
	}
	return user, nil
}

// GetUserByEmail returns the user with the given email, or a not-found
// error.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.log.Warn().Str("email", email).Msg("user not found")
		return nil, NewUserNotFoundError(fmt.Sprintf("email=%s", email))
	}
	return user, nil
}

// FindUserByUsername returns the user with the given username, or
// (nil, nil) when no user matches. Unlike the id/email getters it does
// not treat absence as an error; the username path reports "no match"
// as an empty result.
func (s *UserService) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.store.GetByUsername(ctx, username)
}

// GetAllUsers returns the users page [skip, skip+limit).
func (s *UserService) GetAllUsers(ctx context.Context, skip, limit int) ([]model.User, error) {
	users, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("count", len(users)).Msg("users fetched")
	return users, nil
}

// GetActiveUsers returns the active users page [skip, skip+limit).
func (s *UserService) GetActiveUsers(ctx context.Context, skip, limit int) ([]model.User, error) {
	users, err := s.store.ListActive(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("count", len(users)).Msg("active users fetched")
	return users, nil
}

// UpdateUserParams carries a partial user update. Nil fields are left
// unchanged.
type UpdateUserParams struct {
	Email     *string
	Username  *string
	Password  *string
	FirstName *string
	LastName  *string
	IsActive  *bool
}

// UpdateUser applies the non-nil fields after re-checking uniqueness on
// changed email/username values.
func (s *UserService) UpdateUser(ctx context.Context, id int, params UpdateUserParams) (*model.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Email != nil && *params.Email != user.Email {
		if taken, err := s.store.EmailExists(ctx, *params.Email); err != nil {
			return nil, err
		} else if taken {
			return nil, NewUserAlreadyExistsError("email", *params.Email)
		}
	}

	if params.Username != nil && *params.Username != user.Username {
		if taken, err := s.store.UsernameExists(ctx, *params.Username); err != nil {
			return nil, err
		} else if taken {
			return nil, NewUserAlreadyExistsError("username", *params.Username)
		}
	}

	updated, err := s.store.Update(ctx, id, model.UserUpdate{
		Email:     params.Email,
		Username:  params.Username,
		Password:  params.Password,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		IsActive:  params.IsActive,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, NewUserNotFoundError(fmt.Sprintf("id=%d", id))
	}

	s.log.Info().Int("user_id", updated.ID).Msg("user updated successfully")
	return updated, nil
}

// DeleteUser soft-deletes a user by setting is_active to false.
func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	inactive := false
	_, err := s.UpdateUser(ctx, id, UpdateUserParams{IsActive: &inactive})
	if err != nil {
		return err
	}
	s.log.Info().Int("user_id", id).Msg("user soft deleted")
	return nil
}
