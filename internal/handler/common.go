package handler

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ward-bed-registry/internal/middleware"
    "github.com/iliyamo/ward-bed-registry/internal/session"
)

// actor returns the staff id recorded against a change.
func actor(c echo.Context) string {
    if s, ok := middleware.SessionFrom(c); ok {
        return s.StaffID
    }
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v
    }
    return "system"
}

// sessionOf returns the caller's session for outbound calls.
func sessionOf(c echo.Context) (session.Session, bool) {
    return middleware.SessionFrom(c)
}
