package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *FrankfurterClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFrankfurterClient(srv.URL+"/", 2*time.Second, logger.NewNopLogger())
}

func TestFrankfurterClient_LatestRate(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2025-01-03","rates":{"CNY":7.3215}}`))
	})

	rate, err := c.LatestRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7.3215", rate.String())
	assert.Equal(t, "/latest", gotPath)
	assert.Contains(t, gotQuery, "from=USD")
	assert.Contains(t, gotQuery, "to=CNY")
}

func TestFrankfurterClient_RateOn(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2024-06-03", r.URL.Path)
		w.Write([]byte(`{"base":"USD","date":"2024-06-03","rates":{"CNY":7.2401}}`))
	})

	rate, err := c.RateOn(context.Background(), "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, "7.2401", rate.String())
}

func TestFrankfurterClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusNotFound, `{"message":"not found"}`},
		{"not json", http.StatusOK, `<html>`},
		{"missing currency", http.StatusOK, `{"rates":{"EUR":0.9}}`},
		{"implausible", http.StatusOK, `{"rates":{"CNY":72.1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.LatestRate(context.Background())
			assert.Error(t, err)
		})
	}
}
