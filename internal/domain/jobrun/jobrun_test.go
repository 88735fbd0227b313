package jobrun

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobRun_Finish(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ok := &JobRun{Name: JobHourlyRefresh, StartedAt: start}
	assert.Zero(t, ok.Duration())
	ok.Finish(start.Add(3*time.Second), nil)
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Error)
	assert.Equal(t, 3*time.Second, ok.Duration())

	failed := &JobRun{Name: JobMidnightCollect, StartedAt: start}
	failed.Finish(start.Add(time.Second), errors.New("upstream down"))
	assert.False(t, failed.Success)
	assert.Equal(t, "upstream down", failed.Error)
}
