package middleware

// identity.go exposes the identity JWTAuth stored on the echo context.  The
// rate limiter keys on it and handlers read the acting member from it.

import (
    "time"

    "github.com/labstack/echo/v4"
)

// Email returns the authenticated member's email, or "" for anonymous
// requests.
func Email(c echo.Context) string {
    s, _ := c.Get(KeyEmail).(string)
    return s
}

// Role returns the role claim of the authenticated member.
func Role(c echo.Context) string {
    s, _ := c.Get(KeyRole).(string)
    return s
}

// AccessToken returns the raw bearer token and its expiry.
func AccessToken(c echo.Context) (string, time.Time) {
    tok, _ := c.Get(KeyToken).(string)
    exp, _ := c.Get(KeyTokenExp).(time.Time)
    return tok, exp
}

// userID is the rate-limit identity: the email, or "anon".
func userID(c echo.Context) string {
    if e := Email(c); e != "" {
        return e
    }
    return "anon"
}
