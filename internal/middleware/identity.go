package middleware

// identity.go holds the context accessors shared by the middleware and the
// handlers.  JWTAuth stores the session under sessionKey; everything else
// reads it through SessionFrom.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ward-bed-registry/internal/session"
)

const sessionKey = "session"

// SessionFrom returns the session stored by JWTAuth.  The second result is
// false on routes that are not behind JWTAuth.
func SessionFrom(c echo.Context) (session.Session, bool) {
    s, ok := c.Get(sessionKey).(session.Session)
    return s, ok && s.Valid()
}

// staffID returns the authenticated staff id, or "guest" when the request
// carries no session.
func staffID(c echo.Context) string {
    if s, ok := SessionFrom(c); ok && s.StaffID != "" {
        return s.StaffID
    }
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v
    }
    return "guest"
}
