package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubConnector struct{ err error }

func (s stubConnector) Ready(context.Context) error { return s.err }

func serve(t *testing.T, hm *HealthMonitor, path string) (int, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	hm.RegisterHandlers(r, "/health/live", "/health/ready")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthMonitor_AllHealthy(t *testing.T) {
	hm := NewHealthMonitor(Config{
		Version:          "1.2.3",
		Storage:          stubPinger{},
		Database:         stubPinger{},
		Search:           stubPinger{},
		Connectors:       map[string]ConnectorHealthCheck{"telegram": stubConnector{}},
		FailureThreshold: 1,
	})

	code, body := serve(t, hm, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])

	checks := body["readiness"].(map[string]any)["checks"].(map[string]any)
	for _, name := range []string{"shutdown", "storage", "postgres", "search_api", "telegram_connector"} {
		assert.Contains(t, checks, name)
	}

	code, _ = serve(t, hm, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthMonitor_FailingDependency(t *testing.T) {
	hm := NewHealthMonitor(Config{
		Storage:          stubPinger{err: errors.New("bucket gone")},
		Connectors:       map[string]ConnectorHealthCheck{"slack": stubConnector{err: errors.New("invalid_auth")}},
		FailureThreshold: 1,
	})

	code, body := serve(t, hm, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "error", checks["storage"].(map[string]any)["status"])
	assert.Equal(t, "error", checks["slack_connector"].(map[string]any)["status"])

	code, _ = serve(t, hm, "/health/live")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthMonitor_ShuttingDown(t *testing.T) {
	hm := NewHealthMonitor(Config{FailureThreshold: 1})
	code, _ := serve(t, hm, "/health/ready")
	assert.Equal(t, http.StatusOK, code)

	hm.MarkShuttingDown()
	code, body := serve(t, hm, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
}
