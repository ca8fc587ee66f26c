package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ward-bed-registry/internal/handler"
	"github.com/iliyamo/ward-bed-registry/internal/middleware"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// RegisterStore registers the Bed Entity Store routes at the root path.
// Every route needs a staff JWT.  Reads are open to all staff roles and go
// through cache; mutations are limited to editors and go through rateLimit.
// Middleware is attached per route because the routes share the root
// prefix with /healthz.
func RegisterStore(e *echo.Echo, h *handler.StoreHandler, jwtSecret string, cache, rateLimit echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)
	anyStaff := middleware.RequireRole(session.AllRoles...)
	editors := middleware.RequireRole(session.EditorRoles...)

	e.GET("/beds", h.ListBeds, auth, anyStaff, cache)
	e.GET("/ward-status/:ward_id", h.WardStatus, auth, anyStaff, cache)

	e.POST("/bed", h.CreateBed, auth, editors, rateLimit)
	e.PUT("/bed-status", h.UpdateBedStatus, auth, editors, rateLimit)
	e.DELETE("/bed", h.DeleteBed, auth, editors)
	e.POST("/ward-census", h.RecordCensus, auth, editors, rateLimit)
	// Opening surge beds is a ward head decision.
	e.PUT("/ward-surge", h.SetSurge, auth, middleware.RequireRole(session.RoleWardHead), rateLimit)
}
