package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpstream("daily", time.Now(), nil)
		m.CacheLookup("price_list", true)
		m.RecordWritten("GI", OutcomeSuccess)
		m.ObserveJob("hourly_refresh", time.Second, errors.New("x"))
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveUpstream("daily", time.Now(), nil)
	m.ObserveUpstream("daily", time.Now(), errors.New("boom"))
	m.RecordWritten("GI", OutcomeSuccess)
	m.RecordWritten("GI", OutcomeSuccess)
	m.RecordWritten("GI", OutcomeSkipped)
	m.ObserveJob("midnight_collect", 2*time.Second, nil)
	m.CacheLookup("realtime", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("daily", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsWritten.WithLabelValues("GI", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("midnight_collect", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("realtime", "miss")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveJob("hourly_refresh", time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ippgi_prices_job_runs_total{job="hourly_refresh",outcome="success"} 1`)
}
