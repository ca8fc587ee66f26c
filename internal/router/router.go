package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ward-bed-registry/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}
