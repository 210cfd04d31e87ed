package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLoggerWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Service: "rota", Output: &buf})

	log.Info("reply composed", StringField("mood", "happy"), IntField("len", 12))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "reply composed", entries[0]["msg"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "rota", entries[0]["service"])
	assert.Equal(t, "happy", entries[0]["mood"])
	assert.Equal(t, "12", entries[0]["len"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: WarnLevel, Output: &buf})

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")
	log.Error("shown as well")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warning", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(Config{Output: &buf})
	child := parent.WithFields(StringField("component", "learner"))

	parent.Info("from parent")
	child.Info("from child")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	_, hasComponent := entries[0]["component"]
	assert.False(t, hasComponent)
	assert.Equal(t, "learner", entries[1]["component"])
}

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name  string
		field LogField
		key   string
		value string
	}{
		{"bool", BoolField("ok", true), "ok", "true"},
		{"int64", Int64Field("n", 42), "n", "42"},
		{"duration", DurationField("d", 1500*time.Millisecond), "d", "1.5s"},
		{"error", ErrorField(errors.New("boom")), "error", "boom"},
		{"nil error", ErrorField(nil), "error", "<nil>"},
		{"generic float", Field("ratio", 0.6), "ratio", "0.6"},
		{"status", HTTPStatusField(404), "http_status", "404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.Equal(t, tt.value, tt.field.Value)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, "warn", WarnLevel.String())
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	require.NotEmpty(t, id)

	again, same := EnsureCorrelationID(ctx)
	assert.Equal(t, id, same)
	assert.Equal(t, id, GetCorrelationIDFromContext(again))
}

func TestEnsureHTTPCorrelationID(t *testing.T) {
	t.Run("keeps a valid header", func(t *testing.T) {
		want := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, want)

		req, got := EnsureHTTPCorrelationID(req)
		assert.Equal(t, want, got)
		assert.Equal(t, want, GetCorrelationIDFromContext(req.Context()))
	})

	t.Run("replaces an invalid header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, "not-a-uuid")

		req, got := EnsureHTTPCorrelationID(req)
		assert.NotEqual(t, "not-a-uuid", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
		assert.Equal(t, got, req.Header.Get(CorrelationIDHeader))
	})
}

func TestHTTPMiddlewareLogsRequestAndResponse(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Output: &buf})

	handler := log.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetCorrelationIDFromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "HTTP request received", entries[0]["msg"])
	assert.Equal(t, "/chat", entries[0]["http_path"])
	assert.Equal(t, "HTTP response sent", entries[1]["msg"])
	assert.Equal(t, "418", entries[1]["http_status"])
	assert.Equal(t, "15", entries[1]["response_bytes"])
}

func TestGetLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Output: &buf})
	ctx := WithCorrelationIDContext(context.Background(), "abc")

	GetLoggerFromContext(ctx, base).Info("hello")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0][CorrelationIDFieldKey])
}
