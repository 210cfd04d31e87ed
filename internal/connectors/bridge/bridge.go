// Package bridge talks to a running rota service over its HTTP API, so the CLI
// can chat with a shared bot instead of building a local one.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/learner"
	"github.com/lewisedginton/rota/pkg/logger"
)

// Bridge is a client for one rota service.
type Bridge struct {
	baseURL string
	client  *resty.Client
	logger  logger.Logger
}

// Config points a Bridge at a service.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  logger.Logger
}

// Mood is the service's current mood.
type Mood struct {
	Mood  string `json:"mood"`
	Emoji string `json:"emoji"`
}

type apiError struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

type chatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type learnRequest struct {
	Questions    []string `json:"questions,omitempty"`
	SkipAnswered *bool    `json:"skip_answered,omitempty"`
}

// NewBridge creates a client. A zero Timeout means two minutes, longer than the
// service takes to answer a batch request.
func NewBridge(cfg Config) (*Bridge, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	b := &Bridge{
		baseURL: base,
		client: resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json").
			SetError(&apiError{}),
		logger: cfg.Logger.WithFields(logger.StringField("server", base)),
	}
	return b, nil
}

// SendMessage posts req to /chat. The exit flag is not carried over the wire, so
// callers detect the goodbye with executor.IsExit.
func (b *Bridge) SendMessage(ctx context.Context, req executor.MessageRequest) (*executor.MessageResponse, error) {
	b.logger.Debug("Sending message",
		logger.StringField("session_id", req.SessionID),
		logger.IntField("length", len(req.Message)))

	var out executor.MessageResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(chatRequest{Message: req.Message, UserID: req.UserID, SessionID: req.SessionID}).
		SetResult(&out).
		Post("/chat")
	if err := check(resp, err, "chat"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mood fetches /mood.
func (b *Bridge) Mood(ctx context.Context) (*Mood, error) {
	var out Mood
	resp, err := b.client.R().SetContext(ctx).SetResult(&out).Get("/mood")
	if err := check(resp, err, "mood"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lookup asks the service's knowledge cache directly.
func (b *Bridge) Lookup(ctx context.Context, question string) (string, error) {
	var out struct {
		Answer string `json:"answer"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"question": question}).
		SetResult(&out).
		Post("/knowledge/lookup")
	if err := check(resp, err, "lookup"); err != nil {
		return "", err
	}
	return out.Answer, nil
}

// LearnResult is the service's answer to a batch request. Status is
// learner.BatchRunning, with zero counts, when the batch outlived the request.
type LearnResult struct {
	Status string `json:"status"`
	learner.BatchResult
}

// Running reports whether the batch is still going on the service.
func (r *LearnResult) Running() bool {
	return r.Status == learner.BatchRunning
}

// Learn runs a batch on the service. Empty questions means its question file.
func (b *Bridge) Learn(ctx context.Context, questions []string, skipAnswered *bool) (*LearnResult, error) {
	var out LearnResult
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(learnRequest{Questions: questions, SkipAnswered: skipAnswered}).
		SetResult(&out).
		Post("/learn")
	if err := check(resp, err, "learn"); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthCheck fetches path (the readiness endpoint by default) and returns its
// body, failing on any non-200 answer.
func (b *Bridge) HealthCheck(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = "/health/ready"
	}
	resp, err := b.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return "", fmt.Errorf("rota server is not accessible: %w", err)
	}
	if resp.StatusCode() != 200 {
		return resp.String(), fmt.Errorf("rota server returned status %d", resp.StatusCode())
	}
	b.logger.Debug("Health check passed")
	return resp.String(), nil
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		return fmt.Errorf("%s: server returned %d: %s", op, resp.StatusCode(), e.Error)
	}
	return fmt.Errorf("%s: server returned %d", op, resp.StatusCode())
}
