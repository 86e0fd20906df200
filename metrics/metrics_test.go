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

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Submissions.WithLabelValues("ok").Inc()
	m.ObserveRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `litoralcitrus_report_submissions_total{result="ok"} 1`)
	assert.Contains(t, string(body), `litoralcitrus_http_requests_total{method="GET",status="200"} 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.AuditEvents.WithLabelValues("dropped").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.AuditEvents.WithLabelValues("dropped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AuditEvents.WithLabelValues("dropped")))
}
