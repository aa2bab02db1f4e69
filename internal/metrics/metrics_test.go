package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveOutcome(t *testing.T) {
	rec := New()

	rec.ObserveOutcome("success")
	rec.ObserveOutcome("success")
	rec.ObserveOutcome(OutcomeExtractionMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.outcomes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.outcomes.WithLabelValues(OutcomeExtractionMiss)))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.outcomes.WithLabelValues("status_failure")))
}

func TestRecorder_Handler(t *testing.T) {
	rec := New()
	rec.ObserveOutcome("transport_failure")
	rec.ObserveDuration(300 * time.Millisecond)

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `advisor_upstream_requests_total{outcome="transport_failure"} 1`)
	assert.Contains(t, string(body), "advisor_upstream_duration_seconds_count 1")
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.ObserveOutcome("success")
		rec.ObserveDuration(time.Second)
	})
}
