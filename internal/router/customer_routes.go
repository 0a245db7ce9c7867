package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-reservation/internal/middleware"
	"github.com/iliyamo/store-reservation/internal/model"
)

// RegisterCustomer registers USER-scoped endpoints under /v1.  Members
// reserve, cancel, fetch their kiosk QR and review completed visits.
func RegisterCustomer(e *echo.Echo, h Handlers, g Guards) {
	c := e.Group(
		"/v1",
		g.Auth,
		g.RateLimit,
		middleware.RequireRole(string(model.RoleUser)),
	)
	c.POST("/reservations", h.Reservations.Create)
	c.POST("/reservations/:id/cancel", h.Reservations.Cancel)
	c.GET("/reservations/:id/qr", h.Reservations.QR)

	c.POST("/reviews", h.Reviews.Create)
	c.PUT("/reviews/:id", h.Reviews.Update)
	c.DELETE("/reviews/:id", h.Reviews.Delete)
}
