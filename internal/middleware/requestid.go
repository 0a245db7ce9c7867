package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/store-reservation/internal/logger"
)

// RequestID keeps an incoming X-Request-ID or assigns a new UUID, and echoes
// it on the response.  It must run before logger.Middleware.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(logger.RequestIDKey)
            if id == "" {
                id = uuid.NewString()
                c.Request().Header.Set(logger.RequestIDKey, id)
            }
            c.Response().Header().Set(logger.RequestIDKey, id)
            return next(c)
        }
    }
}
