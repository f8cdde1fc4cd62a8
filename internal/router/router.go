// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finicafferata/eme-studio-api/internal/handler"
	"github.com/finicafferata/eme-studio-api/internal/middleware"
	"github.com/finicafferata/eme-studio-api/internal/model"
)

// RegisterRoutes registers the operational endpoints: liveness and
// prometheus metrics.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the auth endpoints.  Register, login, refresh
// and logout are unauthenticated; /v1/me requires a valid token of any
// role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleInstructor, model.RoleStudent))
	auth.GET("/me", a.Me)
}
