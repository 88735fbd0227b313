// Package jobrun records the last execution of each scheduled job.
package jobrun

import (
	"context"
	"errors"
	"time"
)

var ErrJobRunNotFound = errors.New("job run not found")

// Job names. Each name keeps exactly one "last run" record.
const (
	JobHourlyRefresh   = "hourly_refresh"
	JobMidnightCollect = "midnight_collect"
)

// Triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// JobRun is the outcome of one job execution.
type JobRun struct {
	Name       string
	RunID      string
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	Error      string
	Details    map[string]any
}

func (r *JobRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finish stamps the end of the run with its outcome.
func (r *JobRun) Finish(at time.Time, err error) {
	r.FinishedAt = at
	r.Success = err == nil
	if err != nil {
		r.Error = err.Error()
	}
}

type Repository interface {
	// Save replaces the last run recorded under run.Name.
	Save(ctx context.Context, run *JobRun) error
	Get(ctx context.Context, name string) (*JobRun, error)
	List(ctx context.Context) ([]*JobRun, error)
}
