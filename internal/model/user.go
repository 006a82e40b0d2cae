// Package model holds the persisted entity types.
//
// Entities map one-to-one onto database rows and are never serialized
// to API clients directly; response shaping happens in the handler and
// nlquery layers.
package model

import "time"

// User is a row of the users table.
//
// Password is kept on the entity because the repository reads and writes
// it, but no response type in the repository exposes it.
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate carries a partial update of a user row. Nil fields are
// left untouched.
type UserUpdate struct {
	Email     *string
	Username  *string
	Password  *string
	FirstName *string
	LastName  *string
	IsActive  *bool
}
