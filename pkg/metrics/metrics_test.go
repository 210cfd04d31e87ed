package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_RepliesAndLookups(t *testing.T) {
	m := NewMetrics(Options{}, logger.NewNop())

	m.ObserveReply("composer")
	m.ObserveReply("composer")
	m.ObserveReply("cache")
	m.ObserveLookup("fuzzy")

	assert.InDelta(t, 2, testutil.ToFloat64(m.replies.WithLabelValues("composer")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.replies.WithLabelValues("cache")), 0)

	out := scrape(t, m)
	assert.Contains(t, out, `rota_knowledge_lookups_total{pass="fuzzy"} 1`)
	assert.Contains(t, out, `rota_replies_total{route="composer"} 2`)
}

func TestMetrics_Jobs(t *testing.T) {
	m := NewMetrics(Options{Jobs: true}, logger.NewNop())

	m.IncJob(JobMetricTotal)
	m.IncJob(JobMetricTotal)
	m.IncJob(JobMetricTotalSuccess)
	m.IncJob(JobMetricTotalFailed)
	m.IncJob(42)

	assert.InDelta(t, 2, testutil.ToFloat64(m.jobs[JobMetricTotal]), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.jobs[JobMetricTotalSuccess]), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.jobs[JobMetricTotalFailed]), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.jobs[JobMetricTotalKilled]), 0)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncJob(JobMetricTotal)
		m.ObserveReply("x")
		m.ObserveLookup("x")
		m.IncrementHTTPResponseCounter(200)
		h := m.HTTPMiddleware()(http.NotFoundHandler())
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestMetrics_CustomMetric(t *testing.T) {
	m := NewMetrics(Options{}, logger.NewNop())
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Subsystem: "test", Name: "records", Help: "records help"})

	require.NoError(t, m.AddCustomMetric(gauge))
	assert.Error(t, m.AddCustomMetric(gauge), "duplicate registration")

	gauge.Set(12)
	assert.Contains(t, scrape(t, m), "test_records 12")
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(Options{HTTP: true}, logger.NewNop())

	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/error") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/a", "/b", "/error"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 3, testutil.ToFloat64(m.httpTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.httpResponses.WithLabelValues("200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpResponses.WithLabelValues("500")), 0)
}

func TestResponseWriter(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, recorder, rw.Unwrap())
}
