// Package monitoring assembles the service's liveness and readiness checks.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lewisedginton/rota/pkg/health"
	"github.com/lewisedginton/rota/pkg/health/checkers"
	"github.com/lewisedginton/rota/pkg/logger"
)

// Report statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ConnectorHealthCheck is a chat front end that can confirm its credentials.
type ConnectorHealthCheck interface {
	Ready(ctx context.Context) error
}

// Config lists the dependencies to probe. Nil fields are not checked.
type Config struct {
	Logger  logger.Logger
	Version string

	Storage  checkers.Pinger
	Database checkers.Pinger
	Redis    checkers.RedisPinger
	// SearchURL is probed with an HTTP GET when Search is nil.
	SearchURL string
	Search    checkers.Pinger

	Connectors map[string]ConnectorHealthCheck

	Timeout          time.Duration
	FailureThreshold int
}

// HealthMonitor serves the health endpoints. After MarkShuttingDown readiness fails.
type HealthMonitor struct {
	checker      *health.HealthChecker
	logger       logger.Logger
	version      string
	startTime    time.Time
	shuttingDown atomic.Bool
}

func NewHealthMonitor(cfg Config) *HealthMonitor {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	hm := &HealthMonitor{
		checker: health.New(
			health.WithLogger(cfg.Logger),
			health.WithTimeout(cfg.Timeout),
			health.WithFailureThreshold(cfg.FailureThreshold),
		),
		logger:    cfg.Logger,
		version:   cfg.Version,
		startTime: time.Now(),
	}

	hm.checker.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error {
		return nil
	}))

	hm.checker.AddReadinessCheck(health.NewCheckFunc("shutdown", func(context.Context) error {
		if hm.shuttingDown.Load() {
			return errShuttingDown
		}
		return nil
	}))
	if cfg.Storage != nil {
		hm.checker.AddReadinessCheck(checkers.NewPingChecker(cfg.Storage, "storage"))
	}
	if cfg.Database != nil {
		hm.checker.AddReadinessCheck(checkers.NewPingChecker(cfg.Database, "postgres"))
	}
	if cfg.Redis != nil {
		hm.checker.AddReadinessCheck(checkers.NewRedisChecker(cfg.Redis, "redis"))
	}
	switch {
	case cfg.Search != nil:
		hm.checker.AddReadinessCheck(checkers.NewPingChecker(cfg.Search, "search_api"))
	case cfg.SearchURL != "":
		hm.checker.AddReadinessCheck(checkers.NewHTTPChecker(cfg.SearchURL, "search_api"))
	}
	for name, conn := range cfg.Connectors {
		if conn == nil {
			continue
		}
		hm.checker.AddReadinessCheck(health.NewCheckFunc(name+"_connector", conn.Ready))
	}

	return hm
}

var errShuttingDown = errors.New("service is shutting down")

// MarkShuttingDown makes every later readiness probe fail.
func (hm *HealthMonitor) MarkShuttingDown() {
	hm.shuttingDown.Store(true)
}

// LivenessHandler serves the liveness checks.
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return hm.checker.LivenessHandler()
}

// ReadinessHandler serves the readiness checks.
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return hm.checker.ReadinessHandler()
}

// Report is the combined health document.
type Report struct {
	Status    string                `json:"status"`
	Timestamp string                `json:"timestamp"`
	Uptime    string                `json:"uptime"`
	Version   string                `json:"version"`
	Liveness  health.HealthResponse `json:"liveness"`
	Readiness health.HealthResponse `json:"readiness"`
}

// Check runs both check sets once.
func (hm *HealthMonitor) Check(ctx context.Context) Report {
	live, liveErr := hm.checker.CheckLiveness(ctx)
	ready, readyErr := hm.checker.CheckReadiness(ctx)

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(hm.startTime).Round(time.Second).String(),
		Version:   hm.version,
		Liveness:  health.NewResponse(live, liveErr),
		Readiness: health.NewResponse(ready, readyErr),
	}
	if !live.Healthy || !ready.Healthy {
		report.Status = StatusUnhealthy
	}
	return report
}

// HealthHandler serves the combined Report.
func (hm *HealthMonitor) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(report); err != nil {
			hm.logger.Error("Failed to encode health report", logger.ErrorField(err))
		}
	}
}

// RegisterHandlers mounts the three endpoints; the combined one lives at /health.
func (hm *HealthMonitor) RegisterHandlers(r chi.Router, livenessPath, readinessPath string) {
	r.Get("/health", hm.HealthHandler())
	r.Get(livenessPath, hm.LivenessHandler())
	r.Get(readinessPath, hm.ReadinessHandler())
}
