package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/p2p-rigid/api-test/internal/model"
)

const userColumns = "id, email, username, password, first_name, last_name, is_active, created_at, updated_at"

// UserRepository performs users table queries against the pgx pool.
//
// Single-row fetches return (nil, nil) when no row matches; callers
// decide whether absence is an error.
type UserRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *UserRepository {
	return &UserRepository{
		pool: pool,
		log:  logger.With().Str("repository", "users").Logger(),
	}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Password,
		&u.FirstName,
		&u.LastName,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row and returns the persisted record.
func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO users (email, username, password, first_name, last_name, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, userColumns)

	row := r.pool.QueryRow(ctx, query,
		u.Email, u.Username, u.Password, u.FirstName, u.LastName, u.IsActive)

	created, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	r.log.Info().Int("user_id", created.ID).Str("email", created.Email).Msg("user created")
	return created, nil
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail fetches a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetByUsername fetches a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// List returns the users page [skip, skip+limit), ordered by id.
func (r *UserRepository) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY id OFFSET $1 LIMIT $2", userColumns)
	return r.queryUsers(ctx, query, skip, limit)
}

// ListActive returns the active users page [skip, skip+limit), ordered by id.
func (r *UserRepository) ListActive(ctx context.Context, skip, limit int) ([]model.User, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM users WHERE is_active = true ORDER BY id OFFSET $1 LIMIT $2",
		userColumns)
	return r.queryUsers(ctx, query, skip, limit)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID,
			&u.Email,
			&u.Username,
			&u.Password,
			&u.FirstName,
			&u.LastName,
			&u.IsActive,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// EmailExists reports whether any user has the given email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists)
	return exists, err
}

// UsernameExists reports whether any user has the given username.
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists)
	return exists, err
}

// Update applies the non-nil fields and returns the updated record, or
// (nil, nil) when the user does not exist.
func (r *UserRepository) Update(ctx context.Context, id int, fields model.UserUpdate) (*model.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET
			email = COALESCE($2, email),
			username = COALESCE($3, username),
			password = COALESCE($4, password),
			first_name = COALESCE($5, first_name),
			last_name = COALESCE($6, last_name),
			is_active = COALESCE($7, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, userColumns)

	row := r.pool.QueryRow(ctx, query, id,
		fields.Email, fields.Username, fields.Password,
		fields.FirstName, fields.LastName, fields.IsActive)

	updated, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		r.log.Info().Int("user_id", updated.ID).Msg("user updated")
	}
	return updated, nil
}
