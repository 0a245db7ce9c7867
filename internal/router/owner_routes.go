package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-reservation/internal/middleware"
	"github.com/iliyamo/store-reservation/internal/model"
)

// RegisterPartner registers PARTNER-scoped endpoints under /v1.  Store
// ownership is checked per reservation by the service.
func RegisterPartner(e *echo.Echo, h Handlers, g Guards) {
	p := e.Group(
		"/v1",
		g.Auth,
		g.RateLimit,
		middleware.RequireRole(string(model.RolePartner)),
	)

	// ---- Stores ----
	p.POST("/stores", h.Stores.RegisterStore)

	// ---- Reservations ----
	p.PATCH("/reservations/:id/handle", h.Reservations.Handle)
	p.PATCH("/reservations/:id/status", h.Reservations.UpdateStatus)
	p.POST("/reservations/:id/no-show", h.Reservations.NoShow)
}
