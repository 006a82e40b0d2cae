package service

import (
	"github.com/p2p-rigid/api-test/internal/nlquery"
	"github.com/p2p-rigid/api-test/internal/repository"
	"github.com/p2p-rigid/api-test/internal/server"
)

// Services holds all service instances.
type Services struct {
	Users   *UserService
	NLQuery *nlquery.Service
}

// NewServices initializes all services with their dependencies.
func NewServices(s *server.Server, repos *repository.Repositories) *Services {
	users := NewUserService(repos.Users, s.Logger)

	return &Services{
		Users:   users,
		NLQuery: nlquery.NewService(s.Config.NLQuery, users, s.Logger),
	}
}
