// Package scheduler runs the price jobs on cron schedules using gocron v2.
package scheduler

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

const pricesTag = "prices"

// DefaultHourlyHours are the business hours the price list is refreshed at.
var DefaultHourlyHours = []int{9, 10, 11, 12, 13, 14, 15, 16, 17}

// PriceJobRunner executes the price jobs.
type PriceJobRunner interface {
	RunHourly(ctx context.Context, trigger string) (*jobrun.JobRun, error)
	RunMidnight(ctx context.Context, trigger string) (*jobrun.JobRun, error)
}

// JobStatus describes one registered job.
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
}

// SchedulerManager owns the gocron scheduler. Cron expressions are
// evaluated in the business timezone.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	runner  PriceJobRunner
	timeout time.Duration
	hours   []int

	mu        sync.RWMutex
	schedules map[string]string
	started   bool
}

// NewSchedulerManager creates a manager; timeout bounds each job execution.
func NewSchedulerManager(runner PriceJobRunner, timeout time.Duration, log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
		runner:    runner,
		timeout:   timeout,
		schedules: make(map[string]string),
	}, nil
}

// NormalizeHours validates, sorts and deduplicates hours of the day.
func NormalizeHours(hours []int) ([]int, error) {
	if len(hours) == 0 {
		return nil, fmt.Errorf("at least one refresh hour is required")
	}
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid refresh hour %d", h)
		}
		out = append(out, h)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// HourlyCron renders "0 h1,h2,... * * *".
func HourlyCron(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return "0 " + strings.Join(parts, ",") + " * * *"
}

const midnightCron = "0 0 * * *"

// RegisterPriceJobs registers the hourly refresh at the given hours and
// the midnight snapshot at 00:00.
func (m *SchedulerManager) RegisterPriceJobs(hours []int) error {
	hours, err := NormalizeHours(hours)
	if err != nil {
		return err
	}

	hourly := HourlyCron(hours)
	_, err = m.scheduler.NewJob(
		gocron.CronJob(hourly, false),
		gocron.NewTask(func() {
			m.execute(jobrun.JobHourlyRefresh, m.runner.RunHourly)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags(pricesTag, "hourly-refresh"),
		gocron.WithName(jobrun.JobHourlyRefresh),
	)
	if err != nil {
		return fmt.Errorf("failed to register hourly refresh: %w", err)
	}

	_, err = m.scheduler.NewJob(
		gocron.CronJob(midnightCron, false),
		gocron.NewTask(func() {
			m.execute(jobrun.JobMidnightCollect, m.runner.RunMidnight)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags(pricesTag, "midnight-collect"),
		gocron.WithName(jobrun.JobMidnightCollect),
	)
	if err != nil {
		return fmt.Errorf("failed to register midnight collection: %w", err)
	}

	m.mu.Lock()
	m.hours = hours
	m.schedules[jobrun.JobHourlyRefresh] = hourly
	m.schedules[jobrun.JobMidnightCollect] = midnightCron
	m.mu.Unlock()

	m.logger.Infow("registered price jobs",
		"hourly_refresh", hourly,
		"midnight_collect", midnightCron,
		"timezone", biztime.Location().String(),
	)
	return nil
}

// Reschedule drops every pending price job and registers them again, so
// the next occurrences are computed from now.
func (m *SchedulerManager) Reschedule(hours []int) error {
	normalized, err := NormalizeHours(hours)
	if err != nil {
		return err
	}
	m.scheduler.RemoveByTags(pricesTag)
	m.logger.Infow("price jobs removed for rescheduling", "hourly_hours", normalized)
	return m.RegisterPriceJobs(normalized)
}

// Hours returns the registered refresh hours.
func (m *SchedulerManager) Hours() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.hours)
}

func (m *SchedulerManager) execute(name string, run func(context.Context, string) (*jobrun.JobRun, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if _, err := run(ctx, jobrun.TriggerScheduled); err != nil {
		// Don't log error if context was cancelled (graceful shutdown)
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("scheduled job failed", "job", name, "error", err)
	}
}

// Status lists the registered price jobs with their next run. Before the
// scheduler has started the next runs are computed from the cron hours.
func (m *SchedulerManager) Status() []JobStatus {
	return m.statusAt(time.Now())
}

func (m *SchedulerManager) statusAt(now time.Time) []JobStatus {
	m.mu.RLock()
	started := m.started
	hours := slices.Clone(m.hours)
	schedules := maps.Clone(m.schedules)
	m.mu.RUnlock()

	computed := nextRuns(now, hours)
	var out []JobStatus
	for _, job := range m.scheduler.Jobs() {
		if !slices.Contains(job.Tags(), pricesTag) {
			continue
		}
		st := JobStatus{Name: job.Name(), Schedule: schedules[job.Name()]}
		if next, err := job.NextRun(); started && err == nil && !next.IsZero() {
			st.NextRun = next
		} else {
			st.NextRun = computed[job.Name()]
		}
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b JobStatus) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// NextRuns computes the next occurrence of every job from now without
// relying on the scheduler having been started.
func (m *SchedulerManager) NextRuns(now time.Time) map[string]time.Time {
	m.mu.RLock()
	hours := slices.Clone(m.hours)
	m.mu.RUnlock()
	return nextRuns(now, hours)
}

func nextRuns(now time.Time, hours []int) map[string]time.Time {
	out := map[string]time.Time{jobrun.JobMidnightCollect: NextRunAt(now, 0)}
	if len(hours) > 0 {
		out[jobrun.JobHourlyRefresh] = NextRunAtAny(now, hours)
	}
	return out
}

// NextRunAt returns the next hour:00 in the business timezone strictly
// after now, rolling forward to the next day when it has already passed.
func NextRunAt(now time.Time, hour int) time.Time {
	local := now.In(biztime.Location())
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, biztime.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextRunAtAny is the earliest NextRunAt over hours.
func NextRunAtAny(now time.Time, hours []int) time.Time {
	var best time.Time
	for _, h := range hours {
		if t := NextRunAt(now, h); best.IsZero() || t.Before(best) {
			best = t
		}
	}
	return best
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs and shuts the scheduler down.
func (m *SchedulerManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")
	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}
