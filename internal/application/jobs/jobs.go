// Package jobs implements the hourly refresh and the midnight snapshot.
// Concurrent invocations of the same job share one execution.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ippgi/ippgi-prices/internal/application/collector"
	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/cache"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/metrics"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

const defaultJobTimeout = 30 * time.Minute

type CacheClearer interface {
	ClearAll(ctx context.Context) (*cache.ClearResult, error)
}

type PriceRefresher interface {
	FetchPriceList(ctx context.Context, force bool) (*price.PriceList, error)
}

type PriceCollector interface {
	CollectAllCurrentPrices(ctx context.Context, force bool) (*collector.Summary, error)
}

type PriceJobs struct {
	cache     CacheClearer
	prices    PriceRefresher
	collector PriceCollector
	runs      jobrun.Repository
	group     singleflight.Group
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    logger.Interface
}

func NewPriceJobs(
	cacheClearer CacheClearer,
	prices PriceRefresher,
	priceCollector PriceCollector,
	runs jobrun.Repository,
	timeout time.Duration,
	m *metrics.Metrics,
	log logger.Interface,
) *PriceJobs {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &PriceJobs{
		cache:     cacheClearer,
		prices:    prices,
		collector: priceCollector,
		runs:      runs,
		timeout:   timeout,
		metrics:   m,
		logger:    log,
	}
}

// RunHourly clears the caches and refills the price list.
func (j *PriceJobs) RunHourly(ctx context.Context, trigger string) (*jobrun.JobRun, error) {
	return j.do(ctx, jobrun.JobHourlyRefresh, trigger, j.hourly)
}

// RunMidnight snapshots the cached list into the history tables, then
// clears the caches and fetches the new day's list. The snapshot must
// come first: it reads the previous day's list from the cache.
func (j *PriceJobs) RunMidnight(ctx context.Context, trigger string) (*jobrun.JobRun, error) {
	return j.do(ctx, jobrun.JobMidnightCollect, trigger, j.midnight)
}

// Run dispatches by job name.
func (j *PriceJobs) Run(ctx context.Context, name, trigger string) (*jobrun.JobRun, error) {
	switch name {
	case jobrun.JobHourlyRefresh:
		return j.RunHourly(ctx, trigger)
	case jobrun.JobMidnightCollect:
		return j.RunMidnight(ctx, trigger)
	}
	return nil, fmt.Errorf("unknown job %q", name)
}

// LastRuns returns the last recorded run of every job.
func (j *PriceJobs) LastRuns(ctx context.Context) ([]*jobrun.JobRun, error) {
	return j.runs.List(ctx)
}

type jobFunc func(ctx context.Context, run *jobrun.JobRun) error

func (j *PriceJobs) do(ctx context.Context, name, trigger string, fn jobFunc) (*jobrun.JobRun, error) {
	v, err, shared := j.group.Do(name, func() (interface{}, error) {
		// the run outlives a cancelled caller because other callers may share it
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
		defer cancel()
		return j.execute(runCtx, name, trigger, fn)
	})
	if shared {
		j.logger.Infow("joined running job", "job", name, "trigger", trigger)
	}
	run, _ := v.(*jobrun.JobRun)
	return run, err
}

func (j *PriceJobs) execute(ctx context.Context, name, trigger string, fn jobFunc) (*jobrun.JobRun, error) {
	now := biztime.NowUTC()
	run := &jobrun.JobRun{
		Name:      name,
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now,
		Details: map[string]any{
			"hour": now.In(biztime.Location()).Hour(),
		},
	}
	j.logger.Infow("job started", "job", name, "run_id", run.RunID, "trigger", trigger)

	err := fn(ctx, run)
	run.Finish(biztime.NowUTC(), err)
	j.metrics.ObserveJob(name, run.Duration(), err)

	if saveErr := j.runs.Save(ctx, run); saveErr != nil {
		j.logger.Errorw("failed to record job run", "job", name, "run_id", run.RunID, "error", saveErr)
	}

	if err != nil {
		j.logger.Errorw("job failed",
			"job", name,
			"run_id", run.RunID,
			"duration", run.Duration(),
			"error", err,
		)
		return run, err
	}
	j.logger.Infow("job completed", "job", name, "run_id", run.RunID, "duration", run.Duration())
	return run, nil
}

func (j *PriceJobs) hourly(ctx context.Context, run *jobrun.JobRun) error {
	j.clear(ctx, run)
	return j.refresh(ctx, run)
}

func (j *PriceJobs) midnight(ctx context.Context, run *jobrun.JobRun) error {
	summary, collectErr := j.collector.CollectAllCurrentPrices(ctx, false)
	if summary != nil {
		run.Details["records_saved"] = summary.TotalSaved
		run.Details["records_failed"] = summary.TotalFailed
		run.Details["records_skipped"] = summary.TotalSkipped
		run.Details["statistics_date"] = summary.StatisticsDate
		run.Details["collection_rate"] = summary.ExchangeRate.String()
		if errs := materialErrors(summary); len(errs) > 0 {
			run.Details["collection_errors"] = errs
		}
	}
	if collectErr != nil {
		collectErr = fmt.Errorf("collection failed: %w", collectErr)
	}

	j.clear(ctx, run)
	return errors.Join(collectErr, j.refresh(ctx, run))
}

func materialErrors(s *collector.Summary) map[string][]string {
	out := make(map[string][]string)
	for name, ms := range s.Materials {
		if len(ms.Errors) > 0 {
			out[name] = ms.Errors
		}
	}
	return out
}

// clear never fails the job: the forced refresh that follows bypasses
// whatever is left in the cache.
func (j *PriceJobs) clear(ctx context.Context, run *jobrun.JobRun) {
	res, err := j.cache.ClearAll(ctx)
	if err != nil {
		run.Details["cache_error"] = err.Error()
		j.logger.Warnw("failed to clear price cache", "job", run.Name, "error", err)
		return
	}
	run.Details["price_list_cleared"] = res.PriceListCleared
	run.Details["realtime_cleared"] = res.RealtimeCleared
}

func (j *PriceJobs) refresh(ctx context.Context, run *jobrun.JobRun) error {
	list, err := j.prices.FetchPriceList(ctx, true)
	if err != nil {
		return fmt.Errorf("price list refresh failed: %w", err)
	}
	run.Details["categories"] = len(list.Categories)
	run.Details["exchange_rate"] = list.ResolvedRate.String()
	if len(list.Errors) > 0 {
		run.Details["category_errors"] = list.Errors
	}
	return nil
}
