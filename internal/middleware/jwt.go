package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/store-reservation/internal/logger"
    "github.com/iliyamo/store-reservation/internal/utils"
)

// Context keys set by JWTAuth.
const (
    KeyEmail    = "email"
    KeyRole     = "role"
    KeyToken    = "access_token"
    KeyTokenExp = "access_token_exp"
)

// RevocationChecker reports whether an access token was signed out.
type RevocationChecker interface {
    IsRevoked(ctx context.Context, token string) (bool, error)
}

// JWTAuth validates a Bearer access token and stores the member's email and
// role in the echo context.  Tokens listed in revoked are refused.  When the
// blacklist cannot be consulted the request is refused as well.
func JWTAuth(secret string, revoked RevocationChecker) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearerToken(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            if revoked != nil {
                isRevoked, err := revoked.IsRevoked(c.Request().Context(), raw)
                if err != nil {
                    logger.FromEcho(c).Error("blacklist lookup failed", zap.Error(err))
                    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "token check unavailable"})
                }
                if isRevoked {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
                }
            }

            c.Set(KeyEmail, claims.Subject)
            c.Set(KeyRole, claims.Role)
            c.Set(KeyToken, raw)
            c.Set(KeyTokenExp, claims.ExpiresAt.Time)
            return next(c)
        }
    }
}

func bearerToken(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    return raw, raw != ""
}
