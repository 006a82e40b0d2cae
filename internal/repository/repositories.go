package repository

import (
	"github.com/p2p-rigid/api-test/internal/server"
)

// Repositories is a container for all repository instances, so services
// can accept one object instead of many.
type Repositories struct {
	Users *UserRepository
}

// NewRepositories constructs the repository container from the shared
// application container.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Users: NewUserRepository(s.DB.Pool, s.Logger),
	}
}
