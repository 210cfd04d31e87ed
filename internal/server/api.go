package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/learner"
	appmiddleware "github.com/lewisedginton/rota/internal/middleware"
	"github.com/lewisedginton/rota/internal/monitoring"
	"github.com/lewisedginton/rota/internal/mood"
	"github.com/lewisedginton/rota/pkg/httpmiddleware"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/unrolled/secure"
)

// API serves the JSON endpoints and the websocket chat.
type API struct {
	c        *Components
	log      logger.Logger
	upgrader websocket.Upgrader
}

// NewRouter builds the service's HTTP handler. hm may be nil when health
// endpoints are disabled.
func NewRouter(c *Components, hm *monitoring.HealthMonitor) http.Handler {
	cfg := c.Config
	a := &API{
		c:   c,
		log: c.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	root := chi.NewRouter()
	root.Use(httpmiddleware.CorrelationID())
	// The websocket sits outside the wrapped stack so the upgrader can hijack
	// the raw connection.
	root.Get("/ws", a.handleWebsocket)

	api := chi.NewRouter()
	mwCfg := httpmiddleware.DefaultConfig()
	mwCfg.EnableCorrelationID = false
	mwCfg.Logger = c.Log
	mwCfg.EnableLogging = true
	mwCfg.Instrument = c.Metrics.HTTPMiddleware()
	mwCfg.Recoverer = appmiddleware.Recovery(appmiddleware.DefaultRecoveryConfig(c.Log))
	mwCfg.Security = &secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      !cfg.IsProduction(),
	}
	mwCfg.CORS.AllowedOrigins = cfg.Security.CORSAllowedOrigins
	mwCfg.MaxBodyBytes = cfg.Security.MaxRequestSize
	if wt := cfg.HTTP.WriteTimeout(); wt > 0 {
		mwCfg.Timeout = wt
	}
	if cfg.Security.RateLimitEnabled {
		mwCfg.RateLimit = &httpmiddleware.RateLimitConfig{
			RPS:   float64(cfg.Security.RateLimitRPS),
			Burst: cfg.Security.RateLimitBurst,
		}
	}
	httpmiddleware.ApplyToRouter(api, mwCfg)

	api.Post("/chat", a.handleChat)
	api.Get("/mood", a.handleMood)
	api.Get("/thoughts", a.handleThoughts)
	api.Route("/knowledge", func(r chi.Router) {
		r.Get("/", a.handleKnowledge)
		r.Post("/lookup", a.handleLookup)
		r.Post("/dedup", a.handleDedup)
	})
	api.Post("/learn", a.handleLearn)
	api.Post("/learn/news", a.handleLearnNews)
	if hm != nil {
		hm.RegisterHandlers(api, cfg.Health.LivenessPath, cfg.Health.ReadinessPath)
	}

	root.Mount("/", api)
	return root
}

type chatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		a.writeError(w, r, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := a.c.Executor.Execute(r.Context(), executor.MessageRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	switch {
	case errors.Is(err, learner.ErrBatchRunning):
		a.writeError(w, r, http.StatusConflict, err.Error())
		return
	case err != nil && resp.Text == "":
		logger.GetLoggerFromContext(r.Context(), a.log).Error("Chat failed", logger.ErrorField(err))
		a.writeError(w, r, http.StatusInternalServerError, "failed to process message")
		return
	case err != nil:
		logger.GetLoggerFromContext(r.Context(), a.log).Warn("Reply sent but state not saved", logger.ErrorField(err))
	}
	a.writeJSON(w, r, http.StatusOK, resp)
}

type moodResponse struct {
	Mood     string   `json:"mood"`
	Emoji    string   `json:"emoji"`
	Keywords []string `json:"keywords,omitempty"`
}

// handleMood reports the current mood and the keywords that trigger each of its
// components.
func (a *API) handleMood(w http.ResponseWriter, r *http.Request) {
	label := a.c.Engine.Mood()
	resp := moodResponse{Mood: label, Emoji: mood.Emoji(label)}
	for _, m := range mood.Components(label) {
		resp.Keywords = append(resp.Keywords, mood.Keywords(m)...)
	}
	a.writeJSON(w, r, http.StatusOK, resp)
}

func (a *API) handleThoughts(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, a.c.Engine.Thoughts())
}

func (a *API) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, a.c.Knowledge.Records())
}

type lookupRequest struct {
	Question string `json:"question"`
}

type lookupResponse struct {
	Answer string `json:"answer"`
	Match  string `json:"match"`
}

func (a *API) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		a.writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}
	answer, pass := a.c.Knowledge.LookupPass(req.Question)
	a.writeJSON(w, r, http.StatusOK, lookupResponse{Answer: answer, Match: pass})
}

func (a *API) handleDedup(w http.ResponseWriter, r *http.Request) {
	removed, err := a.c.Knowledge.Deduplicate(r.Context())
	if err != nil {
		logger.GetLoggerFromContext(r.Context(), a.log).Error("Deduplicate failed", logger.ErrorField(err))
		a.writeError(w, r, http.StatusInternalServerError, "failed to save knowledge")
		return
	}
	a.writeJSON(w, r, http.StatusOK, map[string]int{"removed": removed})
}

type learnRequest struct {
	Questions    []string `json:"questions,omitempty"`
	SkipAnswered *bool    `json:"skip_answered,omitempty"`
}

type learnResponse struct {
	Status string `json:"status"`
	learner.BatchResult
}

// handleLearn answers 200 with the counts when the batch finishes within the
// request's time budget, otherwise 202 while it goes on in the background.
func (a *API) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	questions := req.Questions
	if len(questions) == 0 {
		questions = a.c.Questions(r.Context())
	}
	opts := learner.BatchOptions{
		Interval:     a.c.Config.Learner.Interval,
		SkipAnswered: a.c.Config.Learner.SkipAnswered,
	}
	if req.SkipAnswered != nil {
		opts.SkipAnswered = *req.SkipAnswered
	}

	res, done, err := a.c.LearnBatch(r.Context(), questions, opts)
	switch {
	case errors.Is(err, learner.ErrBatchRunning):
		a.writeError(w, r, http.StatusConflict, err.Error())
	case err != nil:
		a.writeError(w, r, http.StatusServiceUnavailable, "learning interrupted: "+err.Error())
	case !done:
		a.writeJSON(w, r, http.StatusAccepted, learnResponse{Status: learner.BatchRunning})
	default:
		a.writeJSON(w, r, http.StatusOK, learnResponse{Status: learner.BatchDone, BatchResult: res})
	}
}

type newsRequest struct {
	Query string `json:"query"`
	N     int    `json:"n,omitempty"`
}

func (a *API) handleLearnNews(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		a.writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}
	learned, err := a.c.Learner.LearnFromNews(r.Context(), req.Query, req.N)
	if err != nil {
		a.writeError(w, r, http.StatusServiceUnavailable, "learning interrupted: "+err.Error())
		return
	}
	a.writeJSON(w, r, http.StatusOK, map[string]int{"learned": learned})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.GetLoggerFromContext(r.Context(), a.log).Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	a.writeJSON(w, r, status, appmiddleware.ErrorBody{
		Error:         msg,
		CorrelationID: logger.GetCorrelationIDFromContext(r.Context()),
	})
}
