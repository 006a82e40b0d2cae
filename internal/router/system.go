package router

import (
	"github.com/labstack/echo/v4"

	"github.com/p2p-rigid/api-test/internal/handler"
)

// registerSystemRoutes registers endpoints that are not part of
// business logic, currently just the health check used by load
// balancers and uptime monitors.
func registerSystemRoutes(g *echo.Group, h *handler.Handlers) {
	g.GET("/health", h.Health.CheckHealth)
}
