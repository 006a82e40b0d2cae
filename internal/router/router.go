// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/p2p-rigid/api-test/internal/handler"
	"github.com/p2p-rigid/api-test/internal/middleware"
)

// Setup builds the Echo instance: global middleware first, then the
// error handler, then the route groups.
func Setup(h *handler.Handlers, m *middleware.Middlewares) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID and context enhancement run before anything that logs.
	e.Use(middleware.RequestID())
	e.Use(m.ContextEnhancer.EnhanceContext())
	e.Use(m.Global.CORS())
	e.Use(m.Global.RequestLogger())
	e.Use(m.Global.Recover())
	e.Use(m.Global.Secure())

	e.HTTPErrorHandler = m.Global.GlobalErrorHandler

	api := e.Group("/api/v1")
	registerSystemRoutes(api, h)
	registerUserRoutes(api, h)
	registerAgentRoutes(api, h)

	return e
}

func registerUserRoutes(g *echo.Group, h *handler.Handlers) {
	users := g.Group("/users")

	users.POST("", handler.Handle(h.Users.Handler, h.Users.CreateUser, http.StatusCreated,
		func() *handler.CreateUserRequest { return &handler.CreateUserRequest{} }))
	users.GET("", handler.Handle(h.Users.Handler, h.Users.ListUsers, http.StatusOK,
		func() *handler.ListUsersRequest { return &handler.ListUsersRequest{} }))
	users.GET("/:id", handler.Handle(h.Users.Handler, h.Users.GetUser, http.StatusOK,
		func() *handler.GetUserRequest { return &handler.GetUserRequest{} }))
	users.PATCH("/:id", handler.Handle(h.Users.Handler, h.Users.UpdateUser, http.StatusOK,
		func() *handler.UpdateUserRequest { return &handler.UpdateUserRequest{} }))
	users.DELETE("/:id", handler.HandleNoContent(h.Users.Handler, h.Users.DeleteUser, http.StatusNoContent,
		func() *handler.DeleteUserRequest { return &handler.DeleteUserRequest{} }))
}

func registerAgentRoutes(g *echo.Group, h *handler.Handlers) {
	agents := g.Group("/agents")

	agents.POST("/users/query", handler.Handle(h.NLQuery.Handler, h.NLQuery.QueryUsers, http.StatusOK,
		func() *handler.QueryUsersRequest { return &handler.QueryUsersRequest{} }))
}
