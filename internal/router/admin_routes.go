package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-booking/internal/handler"
	"github.com/iliyamo/flight-booking/internal/middleware"
	"github.com/iliyamo/flight-booking/internal/utils"
)

// RegisterAdmin registers catalog writes on g.  Each route requires a
// valid JWT with the ADMIN role.  The middleware is attached per route so
// unknown paths under g still answer 404 rather than 401.
func RegisterAdmin(g *echo.Group, c *handler.CatalogHandler, jwtSecret string) {
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	}

	// ---- Template flights ----
	g.POST("/template-flights", c.CreateTemplate, admin...)
	g.PUT("/template-flights/:id", c.UpdateTemplate, admin...)
	g.DELETE("/template-flights/:id", c.DeleteTemplate, admin...)

	// ---- Flights ----
	g.POST("/flights", c.CreateFlight, admin...)
	g.PUT("/flights/:id", c.UpdateFlight, admin...)
	g.DELETE("/flights/:id", c.DeleteFlight, admin...)
}
