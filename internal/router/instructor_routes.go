package router

import (
	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/handler"
	"github.com/finicafferata/eme-studio-api/internal/middleware"
	"github.com/finicafferata/eme-studio-api/internal/model"
)

// RegisterInstructor registers the instructor surface under
// /v1/instructor: own classes, rosters and attendance.
func RegisterInstructor(e *echo.Echo, h *handler.InstructorHandler, jwtSecret string) {
	g := e.Group("/v1/instructor")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleInstructor))

	g.GET("/classes", h.ListClasses)
	g.GET("/classes/:id/reservations", h.Roster)
	g.POST("/attendance", h.SetAttendance)
}
