package observability

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

func TestMetricsCountOutcomes(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveAdvisorReply("succeeded", 120*time.Millisecond)
	m.ObserveAdvisorReply("timed_out", 30*time.Second)
	m.ObserveAdvisorReply("succeeded", time.Second)
	m.CountTurn("user")
	m.CountRejected("too_long")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdvisorReplies.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdvisorReplies.WithLabelValues("timed_out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatTurns.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRejected.WithLabelValues("too_long")))
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	a := NewMetrics("test")
	b := NewMetrics("test")

	a.CountTurn("assistant")

	assert.Equal(t, 0.0, testutil.ToFloat64(b.ChatTurns.WithLabelValues("assistant")))
}

func TestMetricsHandlerExposesInstruments(t *testing.T) {
	m := NewMetrics("fitspace")
	m.ObserveAdvisorReply("failed", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fitspace_advisor_replies_total{outcome="failed"} 1`)
	assert.Contains(t, string(body), "fitspace_advisor_latency_seconds_bucket")
}
