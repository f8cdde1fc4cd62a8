package router

import (
	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/handler"
	"github.com/finicafferata/eme-studio-api/internal/middleware"
	"github.com/finicafferata/eme-studio-api/internal/model"
)

// RegisterStudent registers the authenticated booking surface.
// Admins share the booking and cancellation endpoints: the handlers
// widen their behavior (book on behalf, capacity override, cancel any
// reservation) based on the role claim.
func RegisterStudent(e *echo.Echo, res *handler.ReservationHandler, pkg *handler.PackageHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	studentOrAdmin := middleware.RequireRole(model.RoleStudent, model.RoleAdmin)
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleInstructor, model.RoleStudent)

	g.POST("/reservations", res.Book, studentOrAdmin)
	g.GET("/my-reservations", res.ListMy, anyRole)
	g.GET("/reservations/:id", res.Get, studentOrAdmin)
	g.PATCH("/reservations/:id", res.Cancel, studentOrAdmin)

	g.GET("/my-packages", pkg.ListMine, anyRole)
	g.GET("/my-payments", pkg.ListMyPayments, anyRole)
}
