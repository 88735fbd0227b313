package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

func TestMain(m *testing.M) {
	biztime.MustInit("Asia/Shanghai")
	m.Run()
}

type nopRunner struct{}

func (nopRunner) RunHourly(context.Context, string) (*jobrun.JobRun, error)   { return nil, nil }
func (nopRunner) RunMidnight(context.Context, string) (*jobrun.JobRun, error) { return nil, nil }

func TestNormalizeHours(t *testing.T) {
	hours, err := NormalizeHours([]int{17, 9, 9, 12})
	require.NoError(t, err)
	assert.Equal(t, []int{9, 12, 17}, hours)

	_, err = NormalizeHours([]int{24})
	assert.Error(t, err)
	_, err = NormalizeHours(nil)
	assert.Error(t, err)
}

func TestHourlyCron(t *testing.T) {
	assert.Equal(t, "0 9,10,11,12,13,14,15,16,17 * * *", HourlyCron(DefaultHourlyHours))
}

func TestNextRunAt(t *testing.T) {
	loc := biztime.Location()
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{"later today", time.Date(2025, 3, 4, 8, 30, 0, 0, loc), 9, time.Date(2025, 3, 4, 9, 0, 0, 0, loc)},
		{"already passed", time.Date(2025, 3, 4, 9, 0, 1, 0, loc), 9, time.Date(2025, 3, 5, 9, 0, 0, 0, loc)},
		{"exactly now rolls forward", time.Date(2025, 3, 4, 0, 0, 0, 0, loc), 0, time.Date(2025, 3, 5, 0, 0, 0, 0, loc)},
		{"month end", time.Date(2025, 2, 28, 23, 0, 0, 0, loc), 0, time.Date(2025, 3, 1, 0, 0, 0, 0, loc)},
		// 15:30 UTC is 23:30 in Shanghai
		{"utc input", time.Date(2025, 3, 4, 15, 30, 0, 0, time.UTC), 0, time.Date(2025, 3, 5, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextRunAt(tt.now, tt.hour)), "got %s", NextRunAt(tt.now, tt.hour))
		})
	}
}

func TestNextRunAtAny(t *testing.T) {
	loc := biztime.Location()
	now := time.Date(2025, 3, 4, 17, 30, 0, 0, loc)
	assert.True(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc).Equal(NextRunAtAny(now, DefaultHourlyHours)))

	now = time.Date(2025, 3, 4, 12, 15, 0, 0, loc)
	assert.True(t, time.Date(2025, 3, 4, 13, 0, 0, 0, loc).Equal(NextRunAtAny(now, DefaultHourlyHours)))
}

func TestRegisterAndReschedule(t *testing.T) {
	m, err := NewSchedulerManager(nopRunner{}, time.Minute, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	require.NoError(t, m.RegisterPriceJobs(DefaultHourlyHours))
	m.Start()
	assert.True(t, m.IsStarted())

	status := m.Status()
	require.Len(t, status, 2)
	assert.Equal(t, jobrun.JobHourlyRefresh, status[0].Name)
	assert.Equal(t, HourlyCron(DefaultHourlyHours), status[0].Schedule)
	assert.Equal(t, midnightCron, status[1].Schedule)

	require.NoError(t, m.Reschedule([]int{10, 14}))
	status = m.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "0 10,14 * * *", status[0].Schedule)

	next := m.NextRuns(time.Date(2025, 3, 4, 11, 0, 0, 0, biztime.Location()))
	assert.Equal(t, 14, next[jobrun.JobHourlyRefresh].Hour())
	assert.Equal(t, 5, next[jobrun.JobMidnightCollect].Day())

	assert.Error(t, m.Reschedule([]int{99}))
	assert.Len(t, m.Status(), 2)
}

func TestStatus_ComputesNextRunsBeforeStart(t *testing.T) {
	m, err := NewSchedulerManager(nopRunner{}, time.Minute, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, m.RegisterPriceJobs(DefaultHourlyHours))
	require.False(t, m.IsStarted())

	loc := biztime.Location()
	status := m.statusAt(time.Date(2025, 3, 4, 17, 30, 0, 0, loc))
	require.Len(t, status, 2)

	assert.Equal(t, jobrun.JobHourlyRefresh, status[0].Name)
	assert.True(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc).Equal(status[0].NextRun), "got %s", status[0].NextRun)
	assert.Equal(t, jobrun.JobMidnightCollect, status[1].Name)
	assert.True(t, time.Date(2025, 3, 5, 0, 0, 0, 0, loc).Equal(status[1].NextRun), "got %s", status[1].NextRun)
}

func TestStatus_UsesSchedulerAfterStart(t *testing.T) {
	m, err := NewSchedulerManager(nopRunner{}, time.Minute, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	require.NoError(t, m.RegisterPriceJobs([]int{9}))
	m.Start()

	now := time.Now()
	for _, st := range m.Status() {
		assert.True(t, st.NextRun.After(now), "%s next run %s", st.Name, st.NextRun)
		assert.Zero(t, st.NextRun.In(biztime.Location()).Minute())
	}
	assert.Equal(t, []int{9}, m.Hours())
}
