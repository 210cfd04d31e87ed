package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	appconfig "github.com/lewisedginton/rota/internal/config"
	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/engine"
	"github.com/lewisedginton/rota/internal/knowledge"
	"github.com/lewisedginton/rota/internal/learner"
	"github.com/lewisedginton/rota/internal/mood"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goParagraph = "Go is an open source programming language that makes it simple to build software."

// newSearchProvider serves a one-result search API at /search and the result page
// at /page.
func newSearchProvider(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"organic_results":[{"link":"` + srv.URL + `/page"}]}`))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body><nav>menu</nav><p>" + goParagraph + "</p></body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestComponents(t *testing.T, searchURL string) *Components {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_LOCAL_DIR", dir)
	t.Setenv("ENGINE_THINK_MIN", "0s")
	t.Setenv("ENGINE_THINK_MAX", "0s")
	t.Setenv("LEARNER_INTERVAL", "0s")
	t.Setenv("LEARNER_QUESTIONS_FILE", filepath.Join(dir, "questions.txt"))
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	if searchURL != "" {
		t.Setenv("SEARCHAPI_API_KEY", "test-key")
		t.Setenv("SEARCH_API_URL", searchURL+"/search")
	}

	cfg, err := appconfig.Load("")
	require.NoError(t, err)
	c, err := Build(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func newTestAPI(t *testing.T, searchURL string) (*httptest.Server, *Components) {
	t.Helper()
	c := newTestComponents(t, searchURL)
	srv := httptest.NewServer(NewRouter(c, NewHealthMonitor(c, nil)))
	t.Cleanup(srv.Close)
	return srv, c
}

func postJSON(t *testing.T, url, body string, dest any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, dest any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func TestChat_ComposesAndTracksMood(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	var reply map[string]string
	code := postJSON(t, srv.URL+"/chat", `{"message":"I am so happy today"}`, &reply)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, reply["response"])
	assert.Equal(t, "happy", reply["mood"])

	var m moodResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/mood", &m))
	assert.Equal(t, "happy", m.Mood)
	assert.Equal(t, "😊", m.Emoji)
	assert.Equal(t, mood.Keywords(mood.Happy), m.Keywords)

	var thoughts []engine.Thought
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/thoughts", &thoughts))
	require.Len(t, thoughts, 1)
	assert.Equal(t, "I am so happy today", thoughts[0].UserInput)
}

func TestMood_Keywords(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	var m moodResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/mood", &m))
	assert.Equal(t, mood.Neutral, m.Mood)
	assert.Empty(t, m.Keywords)

	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/chat", `{"message":"I am happy and sad"}`, nil))
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/mood", &m))
	assert.Equal(t, "happy/sad", m.Mood)
	assert.Equal(t, append(mood.Keywords(mood.Happy), mood.Keywords(mood.Sad)...), m.Keywords)
}

func TestChat_RejectsBadInput(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/chat", `{"message":`, &body))
	assert.Equal(t, "invalid JSON body", body["error"])
	assert.NotEmpty(t, body["correlation_id"])

	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/chat", `{"message":"   "}`, nil))
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/knowledge/lookup", `{}`, nil))
}

func TestChat_UnknownFactualQuestion(t *testing.T) {
	srv, c := newTestAPI(t, "")

	var reply map[string]string
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/chat", `{"message":"What is quantum foam?"}`, &reply))
	assert.Equal(t, knowledge.UnknownAnswer, reply["response"])
	assert.Empty(t, c.Engine.Thoughts(), "factual questions bypass the composer")
}

func TestLearnThenAnswer(t *testing.T) {
	provider := newSearchProvider(t)
	srv, _ := newTestAPI(t, provider.URL)

	var res learnResponse
	code := postJSON(t, srv.URL+"/learn", `{"questions":["What is Go?"],"skip_answered":true}`, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, learner.BatchDone, res.Status)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, res.Learned)

	var records []knowledge.QARecord
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/knowledge", &records))
	require.Len(t, records, 1)
	assert.Equal(t, "What is Go?", records[0].Question)
	assert.Equal(t, goParagraph, records[0].Answer)
	assert.Equal(t, provider.URL+"/page", records[0].Source)

	var lookup lookupResponse
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/knowledge/lookup", `{"question":"what is go"}`, &lookup))
	assert.Equal(t, goParagraph, lookup.Answer)

	var reply map[string]string
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/chat", `{"message":"What is Go?"}`, &reply))
	assert.Equal(t, goParagraph, reply["response"])

	res = learnResponse{}
	code = postJSON(t, srv.URL+"/learn", `{"questions":["What is Go?"]}`, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, res.Attempted)
	assert.Equal(t, 1, res.Skipped)

	var dedup map[string]int
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/knowledge/dedup", ``, &dedup))
	assert.Equal(t, 0, dedup["removed"])
}

// newPacedAPI serves the default question list with the default pacing and write
// timeout scaled down thirtyfold: one question every 667ms against a 1s timeout.
func newPacedAPI(t *testing.T) (*httptest.Server, *Components) {
	t.Helper()
	provider := newSearchProvider(t)
	c := newTestComponents(t, provider.URL)
	c.Config.HTTP.WriteTimeoutSeconds = 1
	c.Config.Learner.Interval = 20 * time.Second / 30

	srv := httptest.NewServer(NewRouter(c, nil))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestLearn_BatchOutlivesWriteTimeout(t *testing.T) {
	srv, c := newPacedAPI(t)

	start := time.Now()
	var res learnResponse
	require.Equal(t, http.StatusAccepted, postJSON(t, srv.URL+"/learn", `{}`, &res))
	assert.Equal(t, learner.BatchRunning, res.Status)
	assert.Less(t, time.Since(start), time.Second, "answered before the write timeout")

	var busy map[string]string
	assert.Equal(t, http.StatusConflict, postJSON(t, srv.URL+"/learn", `{}`, &busy))
	assert.Equal(t, learner.ErrBatchRunning.Error(), busy["error"])

	// Once the batch is over every default question is answered, so a rerun
	// skips them all and finishes within the request.
	require.Eventually(t, func() bool {
		resp, err := http.Post(srv.URL+"/learn", "application/json", strings.NewReader(`{}`))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, 3, c.Knowledge.Len())
}

func TestChat_AutoLearnOutlivesWriteTimeout(t *testing.T) {
	srv, c := newPacedAPI(t)

	var reply map[string]string
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/chat", `{"message":"auto-learn"}`, &reply))
	assert.Equal(t, executor.RelearnPendingReply, reply["response"])

	require.Eventually(t, func() bool { return c.Knowledge.Len() == 3 }, 5*time.Second, 20*time.Millisecond)
}

func TestWebsocketChat(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("I feel sad and lonely")))
	var reply map[string]string
	require.NoError(t, conn.ReadJSON(&reply))
	assert.NotEmpty(t, reply["response"])
	assert.Equal(t, "sad", reply["mood"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("bye")))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Goodbye from rota2.v!", reply["response"])

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestHeartbeatAndHealth(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health/ready", &body))
	assert.Contains(t, body["checks"], "storage")
}
