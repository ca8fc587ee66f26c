package middleware

import (
    "net/http"
    "slices"

    "github.com/labstack/echo/v4"
)

// RequireRole admits only sessions whose role is one of roles.  It must run
// after JWTAuth; a request without a session is rejected with 401, a
// session with another role with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            sess, ok := SessionFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing session"})
            }
            if !slices.Contains(roles, sess.Role) {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
