package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeService(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "message is required"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"response": "echo: " + req.Message, "mood": "neutral"})
	})
	r.Get("/mood", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Mood{Mood: "happy", Emoji: "😊"})
	})
	r.Post("/knowledge/lookup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"answer": "42"})
	})
	r.Post("/learn", func(w http.ResponseWriter, r *http.Request) {
		var req learnRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SkipAnswered != nil && !*req.SkipAnswered {
			writeJSON(w, http.StatusConflict, apiError{Error: "a learning batch is already running"})
			return
		}
		if len(req.Questions) == 0 {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "running"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "done", "attempted": len(req.Questions), "learned": len(req.Questions)})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b, err := NewBridge(Config{BaseURL: newFakeService(t).URL + "/"})
	require.NoError(t, err)
	return b
}

func TestSendMessage(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	resp, err := b.SendMessage(ctx, executor.MessageRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Text)
	assert.Equal(t, "neutral", resp.Mood)

	_, err = b.SendMessage(ctx, executor.MessageRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "message is required")
}

func TestMoodAndLookup(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	m, err := b.Mood(ctx)
	require.NoError(t, err)
	assert.Equal(t, "happy", m.Mood)

	answer, err := b.Lookup(ctx, "meaning of life")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
}

func TestLearn(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	res, err := b.Learn(ctx, []string{"What is Go?", "What is Lua?"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Running())
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 2, res.Learned)

	res, err = b.Learn(ctx, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Running())
	assert.Zero(t, res.Attempted)

	no := false
	_, err = b.Learn(ctx, nil, &no)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestHealthCheck(t *testing.T) {
	b := newTestBridge(t)
	body, err := b.HealthCheck(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, body, "unhealthy")

	_, err = NewBridge(Config{})
	assert.Error(t, err)
}
