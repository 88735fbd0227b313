package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ippgi/ippgi-prices/internal/interfaces/http/handlers"
	"github.com/ippgi/ippgi-prices/internal/interfaces/http/middleware"
)

// PriceRouteConfig holds dependencies for the public price routes.
type PriceRouteConfig struct {
	PriceHandler *handlers.PriceHandler
	RateLimiter  *middleware.RateLimiter
}

// SetupPriceRoutes configures the public price routes.
func SetupPriceRoutes(api *gin.RouterGroup, cfg *PriceRouteConfig) {
	prices := api.Group("/prices")
	{
		prices.GET("", cfg.PriceHandler.ListPrices)
		prices.GET("/categories/:category", cfg.PriceHandler.GetCategory)
		prices.GET("/history", cfg.PriceHandler.GetHistory)

		// realtime quotes go to the upstream API on a cache miss
		prices.GET("/realtime", cfg.RateLimiter.Limit(), cfg.PriceHandler.GetRealtime)
	}
}
