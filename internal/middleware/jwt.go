package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ward-bed-registry/internal/session"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the staff identity into the request context.  Handlers read it via
// c.Get("user_id"), c.Get("role") or SessionFrom(c).  The provided secret
// must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            sess, err := session.FromToken(secret, auth)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set("user_id", sess.StaffID)
            c.Set("role", sess.Role)
            c.Set(sessionKey, sess)
            return next(c)
        }
    }
}
