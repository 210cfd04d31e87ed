// Package executor turns one user message into one reply, whichever front end it came
// from: exit words, the relearn command, factual questions and everything else.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lewisedginton/rota/internal/engine"
	"github.com/lewisedginton/rota/internal/knowledge"
	"github.com/lewisedginton/rota/internal/websearch"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/metrics"
)

// Factual modes.
const (
	ModeCache  = "cache"
	ModeLive   = "live"
	ModeHybrid = "hybrid"
)

// Replies to the relearn command.
const (
	LearnedReply        = "Knowledge updated. You can ask me questions now."
	RelearnPendingReply = "I'm still learning in the background. Ask me again in a little while."
)

// ErrRelearnPending is returned by a Relearner whose batch outlived the caller's
// wait and keeps running in the background.
var ErrRelearnPending = errors.New("knowledge update still running")

var (
	exitWords     = []string{"exit", "quit", "bye"}
	learnCommands = []string{"auto-learn", "get the data"}
	factualStarts = []string{"who", "what", "when", "where", "why", "how", "define", "explain", "tell me about"}
)

// Engine composes conversational replies.
type Engine interface {
	Respond(ctx context.Context, input string) (engine.Reply, error)
	Mood() string
}

// Knowledge answers from the learned cache.
type Knowledge interface {
	Lookup(question string) string
}

// WebLookup searches the web live.
type WebLookup interface {
	SearchAndExtract(ctx context.Context, query string) []websearch.Page
}

// Relearner runs the batch learner and reloads the cache.
type Relearner interface {
	Relearn(ctx context.Context) error
}

// RelearnFunc adapts a function to a Relearner.
type RelearnFunc func(ctx context.Context) error

func (f RelearnFunc) Relearn(ctx context.Context) error { return f(ctx) }

// Config wires an Executor. Knowledge, Web and Relearn are optional.
type Config struct {
	Engine            Engine
	Knowledge         Knowledge
	Web               WebLookup
	Relearn           Relearner
	Persona           string
	FactualMode       string
	LiveExcerptLength int
	Logger            logger.Logger
	Metrics           *metrics.Metrics
}

type Executor struct {
	cfg Config
	log logger.Logger
}

func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	switch cfg.FactualMode {
	case "":
		cfg.FactualMode = ModeCache
	case ModeCache, ModeLive, ModeHybrid:
	default:
		return nil, fmt.Errorf("unknown factual mode %q", cfg.FactualMode)
	}
	if cfg.LiveExcerptLength <= 0 {
		cfg.LiveExcerptLength = 300
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Executor{cfg: cfg, log: cfg.Logger}, nil
}

// Persona is the bot's display name.
func (e *Executor) Persona() string {
	return e.cfg.Persona
}

// Execute answers req. When composing fails to persist, the reply is still returned
// together with the error.
func (e *Executor) Execute(ctx context.Context, req MessageRequest) (MessageResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return MessageResponse{}, fmt.Errorf("message is required")
	}
	lower := strings.ToLower(text)

	log := e.log.WithFields(
		logger.StringField("user_id", req.UserID),
		logger.StringField("session_id", req.SessionID))

	resp, err := e.route(ctx, text, lower)
	if resp.Route != "" {
		e.cfg.Metrics.ObserveReply(resp.Route)
	}
	if err != nil {
		log.Warn("Message handling failed",
			logger.StringField("route", resp.Route),
			logger.ErrorField(err))
		return resp, err
	}
	log.Debug("Message handled", logger.StringField("route", resp.Route))
	return resp, nil
}

func (e *Executor) route(ctx context.Context, text, lower string) (MessageResponse, error) {
	switch {
	case oneOf(lower, exitWords):
		return MessageResponse{
			Text:  fmt.Sprintf("Goodbye from %s!", e.cfg.Persona),
			Mood:  e.cfg.Engine.Mood(),
			Route: RouteExit,
			Exit:  true,
		}, nil
	case oneOf(lower, learnCommands):
		return e.relearn(ctx)
	case IsFactual(lower):
		if resp, ok := e.factual(ctx, text); ok {
			return resp, nil
		}
	}
	return e.compose(ctx, text)
}

func (e *Executor) relearn(ctx context.Context) (MessageResponse, error) {
	resp := MessageResponse{Mood: e.cfg.Engine.Mood(), Route: RouteLearn}
	if e.cfg.Relearn == nil {
		return resp, errors.New("learning is not configured")
	}
	e.log.Info("Updating knowledge")
	err := e.cfg.Relearn.Relearn(ctx)
	switch {
	case errors.Is(err, ErrRelearnPending):
		resp.Text = RelearnPendingReply
	case err != nil:
		return resp, fmt.Errorf("failed to update knowledge: %w", err)
	default:
		resp.Text = LearnedReply
	}
	return resp, nil
}

// factual answers per the factual mode. ok is false when the message should fall
// through to the composer.
func (e *Executor) factual(ctx context.Context, text string) (MessageResponse, bool) {
	mood := e.cfg.Engine.Mood()
	switch e.cfg.FactualMode {
	case ModeLive:
		if answer, ok := e.live(ctx, text); ok {
			return MessageResponse{Text: answer, Mood: mood, Route: RouteLive}, true
		}
		return MessageResponse{}, false
	case ModeHybrid:
		answer := e.lookup(text)
		if answer != knowledge.UnknownAnswer {
			return MessageResponse{Text: answer, Mood: mood, Route: RouteCache}, true
		}
		if live, ok := e.live(ctx, text); ok {
			return MessageResponse{Text: live, Mood: mood, Route: RouteLive}, true
		}
		return MessageResponse{Text: answer, Mood: mood, Route: RouteCache}, true
	default:
		return MessageResponse{Text: e.lookup(text), Mood: mood, Route: RouteCache}, true
	}
}

func (e *Executor) lookup(text string) string {
	if e.cfg.Knowledge == nil {
		return knowledge.UnknownAnswer
	}
	return e.cfg.Knowledge.Lookup(text)
}

func (e *Executor) live(ctx context.Context, text string) (string, bool) {
	if e.cfg.Web == nil {
		return "", false
	}
	pages := e.cfg.Web.SearchAndExtract(ctx, text)
	if len(pages) == 0 || pages[0].Text == "" {
		return "", false
	}
	return knowledge.Truncate(pages[0].Text, e.cfg.LiveExcerptLength), true
}

func (e *Executor) compose(ctx context.Context, text string) (MessageResponse, error) {
	reply, err := e.cfg.Engine.Respond(ctx, text)
	resp := MessageResponse{Text: reply.Text, Mood: reply.Mood, Route: RouteComposer}
	if err != nil && reply.Text == "" {
		resp.Route = ""
	}
	return resp, err
}

// IsExit reports whether text is one of the exit words.
func IsExit(text string) bool {
	return oneOf(strings.ToLower(strings.TrimSpace(text)), exitWords)
}

// IsFactual reports whether lowered input starts like a factual question.
func IsFactual(lower string) bool {
	for _, prefix := range factualStarts {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func oneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

// Mood is the engine's current mood label.
func (e *Executor) Mood() string {
	return e.cfg.Engine.Mood()
}
