package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransitionAndMatch(t *testing.T) {
	m := New()

	m.RecordTransition("donation", "pending", "approved")
	m.RecordTransition("donation", "pending", "approved")
	m.RecordTransition("request", "approved", "matched")
	m.RecordMatch("created")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("donation", "pending", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("request", "approved", "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matches.WithLabelValues("created")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.matches.WithLabelValues("cancelled")))
}

func TestObserveHTTP(t *testing.T) {
	m := New()

	m.ObserveHTTP(http.MethodGet, "/api/donations/{id}", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "/api/donations/{id}", http.StatusNotFound, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/donations/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/donations/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.RecordMatch("completed")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `givehub_matches_total{outcome="completed"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewIsIndependent(t *testing.T) {
	// Two instances must not share a registry.
	a, b := New(), New()
	a.RecordMatch("created")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.matches.WithLabelValues("created")))
}
