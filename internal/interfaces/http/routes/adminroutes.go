package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ippgi/ippgi-prices/internal/interfaces/http/handlers"
	"github.com/ippgi/ippgi-prices/internal/interfaces/http/middleware"
)

// AdminRouteConfig holds dependencies for admin routes.
type AdminRouteConfig struct {
	AdminHandler   *handlers.AdminHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// SetupAdminRoutes configures admin routes. Every route requires an admin token.
func SetupAdminRoutes(api *gin.RouterGroup, cfg *AdminRouteConfig) {
	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	{
		admin.GET("/cache/stats", cfg.AdminHandler.CacheStats)
		admin.POST("/cache/clear", cfg.AdminHandler.ClearCache)
		admin.POST("/prices/update", cfg.AdminHandler.UpdatePrices)
		admin.GET("/schedule", cfg.AdminHandler.Schedule)
	}
}
