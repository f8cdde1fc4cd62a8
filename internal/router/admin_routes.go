package router

import (
	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/handler"
	"github.com/finicafferata/eme-studio-api/internal/middleware"
	"github.com/finicafferata/eme-studio-api/internal/model"
)

// RegisterAdmin registers the admin-only surface: class CRUD, package
// grants, payment records, the expiry sweep and hard reservation
// deletes.
func RegisterAdmin(e *echo.Echo, cls *handler.ClassHandler, pkg *handler.PackageHandler, res *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.POST("/classes", cls.Create)
	g.PATCH("/classes/:id", cls.Update)
	g.DELETE("/classes/:id", cls.Delete)

	g.POST("/packages", pkg.Grant)
	g.POST("/payments", pkg.RecordPayment)
	g.POST("/admin/packages/expire", pkg.ExpireSweep)

	g.DELETE("/reservations/:id", res.Delete)
}
