package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-reservation/internal/handler"
	"github.com/iliyamo/store-reservation/internal/middleware"
	"github.com/iliyamo/store-reservation/internal/model"
)

// Guards are the middlewares shared by route groups.  Any of them may be a
// pass-through when its backing service (Redis) is disabled.
type Guards struct {
	Auth      echo.MiddlewareFunc // JWT + blacklist
	RateLimit echo.MiddlewareFunc // token bucket on /v1
	Cache     echo.MiddlewareFunc // response cache for public reads
}

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Stores       *handler.StoreHandler
	Reservations *handler.ReservationHandler
	Reviews      *handler.ReviewHandler
	Health       echo.HandlerFunc
	Metrics      http.Handler // nil disables /metrics
}

// Register mounts the whole /v1 API.
func Register(e *echo.Echo, h Handlers, g Guards) {
	RegisterPublic(e, h, g)
	RegisterMember(e, h, g)
	RegisterCustomer(e, h, g)
	RegisterPartner(e, h, g)
}

// RegisterPublic mounts routes that need no member token: auth exchange,
// the cached store directory and the kiosk check-in.
func RegisterPublic(e *echo.Echo, h Handlers, g Guards) {
	e.GET("/healthz", h.Health)
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	auth := e.Group("/v1/auth", g.RateLimit)
	auth.POST("/sign-up", h.Auth.SignUp)
	auth.POST("/sign-in", h.Auth.SignIn)
	auth.POST("/refresh", h.Auth.Refresh)

	browse := e.Group("/v1", g.RateLimit, g.Cache)
	browse.GET("/stores", h.Stores.SearchStores)
	browse.GET("/stores/:id", h.Stores.GetStore)
	browse.GET("/stores/:id/timetable", h.Stores.TimeTable)
	browse.GET("/stores/:id/reviews", h.Stores.StoreReviews)

	// kiosk: the verification code is the credential
	e.POST("/v1/reservations/:id/check-in", h.Reservations.CheckIn, g.RateLimit)
}

// RegisterMember mounts routes open to any signed-in member.
func RegisterMember(e *echo.Echo, h Handlers, g Guards) {
	m := e.Group("/v1", g.Auth, g.RateLimit,
		middleware.RequireRole(string(model.RoleUser), string(model.RolePartner)))
	m.GET("/me", h.Auth.Me)
	m.POST("/auth/sign-out", h.Auth.SignOut)
	m.GET("/reservations", h.Reservations.List)
}
