package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ward-bed-registry/internal/handler"
	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/middleware"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// RegisterDashboard registers the dashboard API under /v1 plus the
// Prometheus endpoint.  Bed mutations need an editor role; everything else
// is open to all staff.
func RegisterDashboard(e *echo.Echo, h *handler.DashboardHandler, jwtSecret string, m *metrics.Metrics) {
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(session.AllRoles...),
	)
	g.GET("/inventory", h.Inventory)
	g.GET("/wards", h.WardViews)
	g.GET("/wards/:ward_id/view", h.WardView)
	g.GET("/plan", h.Plan)
	g.POST("/plan/refresh", h.RefreshPlan)

	edit := middleware.RequireRole(session.EditorRoles...)
	g.POST("/beds", h.RegisterBed, edit)
	g.PUT("/beds/:bed_id/status", h.UpdateBedStatus, edit)
}
