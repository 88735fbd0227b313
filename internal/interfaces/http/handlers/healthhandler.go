package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
)

// HealthChecker pings one dependency.
type HealthChecker func(ctx context.Context) error

type HealthHandler struct {
	version  string
	checkers map[string]HealthChecker
}

func NewHealthHandler(version string, checkers map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, checkers: checkers}
}

// Health handles GET /health. It answers 503 when any dependency check fails.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checkers))
	for name, check := range h.checkers {
		if err := check(ctx); err != nil {
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"version": h.version,
		"time":    biztime.NowUTC(),
		"checks":  checks,
	})
}
