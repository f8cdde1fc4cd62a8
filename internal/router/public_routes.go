package router

import (
	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/handler"
)

// RegisterPublic registers the unauthenticated surface: the class
// catalogue, per-frame availability and the guest booking endpoint.
// The middlewares argument (response cache, rate limiter) applies to
// the read endpoints only; the booking POST must never be cached.
func RegisterPublic(e *echo.Echo, cls *handler.ClassHandler, pub *handler.PublicBookingHandler, readMiddleware ...echo.MiddlewareFunc) {
	e.GET("/v1/classes", cls.List, readMiddleware...)
	e.GET("/v1/classes/:id", cls.Get, readMiddleware...)
	e.GET("/v1/classes/:id/availability", cls.Availability, readMiddleware...)

	e.POST("/v1/public/book-class", pub.BookClass)
}
