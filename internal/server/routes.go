package server

import (
	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Structure routes
	apiRoutes.GET("/structures", routes.GetStructuresHandler)
	apiRoutes.POST("/structures", routes.CreateStructureHandler, middleware.RequireCapability("structure.create"))
	apiRoutes.PATCH("/structures/:id", routes.EditStructureHandler, middleware.RequireCapability("structure.update"))
	apiRoutes.DELETE("/structures/:id", routes.DeleteStructureHandler, middleware.RequireCapability("structure.delete"))
	apiRoutes.GET("/structures/:id/descendants", routes.GetStructureDescendantsHandler)
	apiRoutes.GET("/structures/:id/ancestors", routes.GetStructureAncestorsHandler)
	apiRoutes.POST("/structures/export", routes.ExportStructuresHandler, middleware.RequireCapability("structure.export"))

	// User routes
	apiRoutes.GET("/users", routes.GetUsersHandler)
	apiRoutes.GET("/users/:id", routes.GetUserHandler)
	apiRoutes.POST("/users", routes.CreateUserHandler, middleware.RequireCapability("user.create"))
	apiRoutes.PATCH("/users/:id", routes.EditUserHandler, middleware.RequireCapability("user.update"))

	// Grant routes
	apiRoutes.GET("/grants", routes.GetGrantsHandler, middleware.RequireCapability("grant.view"))
	apiRoutes.POST("/grants", routes.CreateGrantHandler, middleware.RequireCapability("grant.create"))
	apiRoutes.DELETE("/grants/:id", routes.DeleteGrantHandler, middleware.RequireCapability("grant.delete"))
}
