package handler

import (
	"github.com/p2p-rigid/api-test/internal/server"
	"github.com/p2p-rigid/api-test/internal/service"
)

// Handlers is a container that groups all HTTP handlers so router
// setup can pass one object around instead of many.
type Handlers struct {
	Health  *HealthHandler
	Users   *UserHandler
	NLQuery *NLQueryHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		Users:   NewUserHandler(s, services.Users),
		NLQuery: NewNLQueryHandler(s, services.NLQuery),
	}
}
