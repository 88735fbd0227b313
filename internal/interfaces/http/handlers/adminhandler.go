package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/cache"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/scheduler"
	"github.com/ippgi/ippgi-prices/internal/interfaces/http/middleware"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	"github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
	"github.com/ippgi/ippgi-prices/internal/shared/utils"
)

type CacheAdmin interface {
	Stats(ctx context.Context) (*cache.Stats, error)
	ClearAll(ctx context.Context) (*cache.ClearResult, error)
}

type JobRunner interface {
	Run(ctx context.Context, name, trigger string) (*jobrun.JobRun, error)
	LastRuns(ctx context.Context) ([]*jobrun.JobRun, error)
}

// ScheduleReporter is nil when the scheduler is disabled.
type ScheduleReporter interface {
	Status() []scheduler.JobStatus
}

type AdminHandler struct {
	cache    CacheAdmin
	jobs     JobRunner
	schedule ScheduleReporter
	logger   logger.Interface
}

func NewAdminHandler(cacheAdmin CacheAdmin, jobs JobRunner, schedule ScheduleReporter, logger logger.Interface) *AdminHandler {
	return &AdminHandler{
		cache:    cacheAdmin,
		jobs:     jobs,
		schedule: schedule,
		logger:   logger,
	}
}

// jobAliases maps the manual trigger names onto job names.
var jobAliases = map[string]string{
	"hourly":   jobrun.JobHourlyRefresh,
	"midnight": jobrun.JobMidnightCollect,
}

type UpdatePricesRequest struct {
	Job string `json:"job" binding:"required,oneof=hourly midnight"`
}

type JobRunResponse struct {
	Name       string         `json:"name"`
	RunID      string         `json:"run_id"`
	Trigger    string         `json:"trigger"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DurationMs int64          `json:"duration_ms"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

func toJobRunResponse(run *jobrun.JobRun) *JobRunResponse {
	return &JobRunResponse{
		Name:       run.Name,
		RunID:      run.RunID,
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.Duration().Milliseconds(),
		Success:    run.Success,
		Error:      run.Error,
		Details:    run.Details,
	}
}

type ScheduleResponse struct {
	Enabled  bool                  `json:"enabled"`
	Timezone string                `json:"timezone"`
	Jobs     []scheduler.JobStatus `json:"jobs"`
	LastRuns []*JobRunResponse     `json:"last_runs"`
}

// CacheStats handles GET /api/v1/admin/cache/stats
func (h *AdminHandler) CacheStats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to read cache stats", "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to read cache stats"))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", stats)
}

// ClearCache handles POST /api/v1/admin/cache/clear
func (h *AdminHandler) ClearCache(c *gin.Context) {
	result, err := h.cache.ClearAll(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to clear cache", "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to clear cache"))
		return
	}

	h.logger.Infow("cache cleared by admin",
		"admin", c.GetString(middleware.ContextKeyAdminSubject),
		"realtime_cleared", result.RealtimeCleared,
	)
	utils.SuccessResponse(c, http.StatusOK, "cache cleared", result)
}

// UpdatePrices handles POST /api/v1/admin/prices/update. The job runs to
// completion before the response is written; a failed run is still
// reported with its details.
func (h *AdminHandler) UpdatePrices(c *gin.Context) {
	var req UpdatePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("job must be one of: hourly, midnight", err.Error()))
		return
	}

	name := jobAliases[req.Job]
	run, err := h.jobs.Run(c.Request.Context(), name, jobrun.TriggerManual)
	if run == nil {
		h.logger.Errorw("manual job trigger failed", "job", name, "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to run job"))
		return
	}

	message := "job completed"
	if err != nil {
		h.logger.Warnw("manual job finished with errors", "job", name, "run_id", run.RunID, "error", err)
		message = "job completed with errors"
	}
	utils.SuccessResponse(c, http.StatusOK, message, toJobRunResponse(run))
}

// Schedule handles GET /api/v1/admin/schedule
func (h *AdminHandler) Schedule(c *gin.Context) {
	runs, err := h.jobs.LastRuns(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to list job runs", "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to list job runs"))
		return
	}

	resp := ScheduleResponse{
		Enabled:  h.schedule != nil,
		Timezone: biztime.Location().String(),
		Jobs:     []scheduler.JobStatus{},
		LastRuns: make([]*JobRunResponse, 0, len(runs)),
	}
	if h.schedule != nil {
		if jobs := h.schedule.Status(); jobs != nil {
			resp.Jobs = jobs
		}
	}
	for _, run := range runs {
		resp.LastRuns = append(resp.LastRuns, toJobRunResponse(run))
	}

	utils.SuccessResponse(c, http.StatusOK, "", resp)
}
