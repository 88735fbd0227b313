package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ippgi/ippgi-prices/internal/infrastructure/cache"
	"github.com/ippgi/ippgi-prices/internal/interfaces/http/handlers"
	"github.com/ippgi/ippgi-prices/internal/interfaces/http/middleware"
	"github.com/ippgi/ippgi-prices/internal/interfaces/http/routes"
	"github.com/ippgi/ippgi-prices/internal/shared/config"
	"github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
	"github.com/ippgi/ippgi-prices/internal/shared/utils"
)

// RouterDeps are the services the HTTP layer exposes. Schedule may be nil
// when the scheduler is disabled; Redis may be nil to disable rate limiting.
type RouterDeps struct {
	Server   config.ServerConfig
	Version  string
	Prices   handlers.PriceService
	Cache    handlers.CacheAdmin
	Jobs     handlers.JobRunner
	Schedule handlers.ScheduleReporter
	Verifier middleware.TokenVerifier
	Metrics  http.Handler
	Health   map[string]handlers.HealthChecker
	Redis    *redis.Client
}

// Router represents the HTTP router configuration
type Router struct {
	engine *gin.Engine
	deps   RouterDeps
	logger logger.Interface
}

func NewRouter(deps RouterDeps, log logger.Interface) *Router {
	return &Router{
		engine: gin.New(),
		deps:   deps,
		logger: log,
	}
}

// SetupRoutes configures middleware and every route.
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.RequestLogger(r.logger))
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.CORS(r.deps.Server.AllowedOrigins))

	health := handlers.NewHealthHandler(r.deps.Version, r.deps.Health)
	r.engine.GET("/health", health.Health)
	if r.deps.Metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.deps.Metrics))
	}

	api := r.engine.Group("/api/v1")

	routes.SetupPriceRoutes(api, &routes.PriceRouteConfig{
		PriceHandler: handlers.NewPriceHandler(r.deps.Prices, r.logger),
		RateLimiter:  middleware.NewRateLimiter(r.deps.Redis, cache.KeyPrefix, r.deps.Server.RateLimit, 0, r.logger),
	})

	routes.SetupAdminRoutes(api, &routes.AdminRouteConfig{
		AdminHandler:   handlers.NewAdminHandler(r.deps.Cache, r.deps.Jobs, r.deps.Schedule, r.logger),
		AuthMiddleware: middleware.NewAuthMiddleware(r.deps.Verifier, r.logger),
	})

	r.engine.NoRoute(func(c *gin.Context) {
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("route not found"))
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
