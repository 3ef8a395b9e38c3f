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

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.Decision("approved")
	r.Decision("approved")
	r.Decision("error")
	r.Poll("updated")
	r.ServiceCall("credit-score", nil, 20*time.Millisecond)
	r.ServiceCall("credit-score", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.polls.WithLabelValues("updated")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.serviceCalls))
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.Decision("approved")
	r.Poll("failed")
	r.ServiceCall("fraud-check", nil, time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	r := New()
	r.Decision("rejected")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `microloan_underwriting_decisions_total{status="rejected"} 1`)
}
