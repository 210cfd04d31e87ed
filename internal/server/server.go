// Package server runs rota as a long-lived service: the HTTP API and websocket
// chat, the Telegram and Slack connectors, the metrics listener and the
// continuous learner.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	appconfig "github.com/lewisedginton/rota/internal/config"
	"github.com/lewisedginton/rota/internal/connectors/slack"
	"github.com/lewisedginton/rota/internal/connectors/telegram"
	"github.com/lewisedginton/rota/internal/monitoring"
	"github.com/lewisedginton/rota/internal/websearch"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// Connector is a chat platform front end.
type Connector interface {
	Start(ctx context.Context) error
	Stop() error
	Ready(ctx context.Context) error
}

type Server struct {
	cfg        *appconfig.AppConfig
	log        logger.Logger
	components *Components
	connectors map[string]Connector
	health     *monitoring.HealthMonitor
	http       *http.Server
}

// New builds the components and front ends. Nothing is started until Run.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	c, err := Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, log: log, components: c, connectors: map[string]Connector{}}

	if cfg.Slack.Enabled() {
		conn, err := slack.NewConnector(slack.Config{
			BotToken: cfg.Slack.BotToken,
			AppToken: cfg.Slack.AppToken,
			Debug:    cfg.Slack.Debug,
			Logger:   log,
		}, c.Executor)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create Slack connector: %w", err)
		}
		s.connectors["slack"] = conn
	} else {
		log.Info("Slack connector disabled (missing SLACK_BOT_TOKEN or SLACK_APP_TOKEN)")
	}

	if cfg.Telegram.Enabled() {
		conn, err := telegram.NewConnector(telegram.Config{
			BotToken: cfg.Telegram.BotToken,
			Debug:    cfg.Telegram.Debug,
			Logger:   log,
		}, c.Executor)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create Telegram connector: %w", err)
		}
		s.connectors["telegram"] = conn
	} else {
		log.Info("Telegram connector disabled (missing TELEGRAM_BOT_TOKEN)")
	}

	if cfg.Health.Enabled {
		s.health = NewHealthMonitor(c, s.connectors)
	}

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           NewRouter(c, s.health),
		ReadTimeout:       cfg.HTTP.ReadTimeout(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout(),
		IdleTimeout:       cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	}
	return s, nil
}

// NewHealthMonitor probes the dependencies c was built with plus the connectors.
func NewHealthMonitor(c *Components, connectors map[string]Connector) *monitoring.HealthMonitor {
	cfg := c.Config
	mc := monitoring.Config{
		Logger:           c.Log,
		Version:          cfg.Service.Version,
		Storage:          c.Storage,
		Timeout:          cfg.Health.Timeout,
		FailureThreshold: cfg.Health.FailureThreshold,
		Connectors:       make(map[string]monitoring.ConnectorHealthCheck, len(connectors)),
	}
	if c.Postgres != nil {
		mc.Database = c.Postgres
	}
	if c.Redis != nil {
		mc.Redis = c.Redis
	}
	if cfg.Search.Enabled() {
		if api, ok := c.Web.Searcher().(*websearch.SearchAPI); ok {
			mc.Search = api
		}
	}
	for name, conn := range connectors {
		mc.Connectors[name] = conn
	}
	return monitoring.NewHealthMonitor(mc)
}

// Components exposes the wired bot, mainly for tests.
func (s *Server) Components() *Components {
	return s.components
}

// Handler is the API handler served by Run.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled or a listener or connector fails, then shuts
// everything down. A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChans := []<-chan error{s.listen()}
	if s.cfg.Metrics.ExposeMetrics {
		errChans = append(errChans, s.components.Metrics.Listen(s.cfg.Metrics.Port))
	}
	for name, conn := range s.connectors {
		errChans = append(errChans, runConnector(ctx, name, conn, s.log))
	}
	if s.cfg.Learner.Continuous {
		ch, err := s.runLearner(ctx)
		if err != nil {
			s.shutdown()
			return err
		}
		errChans = append(errChans, ch)
	}

	s.log.Info("rota service started",
		logger.IntField("http_port", s.cfg.HTTP.Port),
		logger.IntField("connectors", len(s.connectors)),
		logger.BoolField("continuous_learner", s.cfg.Learner.Continuous))

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutdown requested")
	case err, ok := <-utils.MergeErrorChans(errChans...):
		if ok && err != nil {
			s.log.Error("Fatal service error", logger.ErrorField(err))
			runErr = err
		}
	}
	cancel()
	s.shutdown()
	return runErr
}

func (s *Server) listen() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.log.Info("Starting HTTP server", logger.StringField("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	return errCh
}

func runConnector(ctx context.Context, name string, conn Connector, log logger.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := conn.Start(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("%s connector: %w", name, err)
		}
		log.Info("Connector stopped", logger.StringField("connector", name))
	}()
	return errCh
}

func (s *Server) runLearner(ctx context.Context) (<-chan error, error) {
	source, release, err := s.components.QuestionSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create question source: %w", err)
	}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer release()
		if err := s.components.Learner.ContinuousLearn(ctx, source, s.cfg.Learner.LoopInterval); err != nil {
			errCh <- fmt.Errorf("continuous learner: %w", err)
		}
	}()
	return errCh, nil
}

func (s *Server) shutdown() {
	if s.health != nil {
		s.health.MarkShuttingDown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
	}
	if err := s.components.Metrics.Shutdown(ctx); err != nil {
		s.log.Error("Metrics listener shutdown error", logger.ErrorField(err))
	}
	for name, conn := range s.connectors {
		if err := conn.Stop(); err != nil {
			s.log.Warn("Connector stop failed", logger.StringField("connector", name), logger.ErrorField(err))
		}
	}
	s.components.Close()
	s.log.Info("rota service stopped")
}
