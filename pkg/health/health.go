// Package health runs liveness and readiness checks and serves them over HTTP.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lewisedginton/rota/pkg/logger"
)

// Check is a single named probe. A nil error means healthy.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Check.
type CheckFunc struct {
	name string
	fn   func(context.Context) error
}

// NewCheckFunc wraps fn as a Check called name.
func NewCheckFunc(name string, fn func(context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string                    { return c.name }
func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckResult is the outcome of one check run.
type CheckResult struct {
	Name    string
	Healthy bool
	Error   string
	Latency time.Duration
}

// HealthStatus aggregates a set of check results.
type HealthStatus struct {
	Healthy bool
	Checks  []CheckResult
}

// HealthChecker holds liveness and readiness checks. A check only reports unhealthy
// after failureThreshold consecutive failures.
type HealthChecker struct {
	mu               sync.RWMutex
	livenessChecks   []Check
	readinessChecks  []Check
	timeout          time.Duration
	failureThreshold int
	failures         map[string]int
	logger           logger.Logger
}

// Option configures a HealthChecker.
type Option func(*HealthChecker)

// WithTimeout bounds each check. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(h *HealthChecker) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger for check outcomes.
func WithLogger(l logger.Logger) Option {
	return func(h *HealthChecker) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithFailureThreshold sets how many consecutive failures mark a check unhealthy. Default 3.
func WithFailureThreshold(threshold int) Option {
	return func(h *HealthChecker) {
		if threshold > 0 {
			h.failureThreshold = threshold
		}
	}
}

// New builds a HealthChecker.
func New(opts ...Option) *HealthChecker {
	h := &HealthChecker{
		timeout:          5 * time.Second,
		failureThreshold: 3,
		failures:         make(map[string]int),
		logger:           logger.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HealthChecker) AddLivenessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, check)
}

func (h *HealthChecker) AddReadinessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, check)
}

// CheckLiveness runs the liveness checks.
func (h *HealthChecker) CheckLiveness(ctx context.Context) (*HealthStatus, error) {
	h.mu.RLock()
	checks := append([]Check(nil), h.livenessChecks...)
	h.mu.RUnlock()
	return h.run(ctx, checks)
}

// CheckReadiness runs the readiness checks.
func (h *HealthChecker) CheckReadiness(ctx context.Context) (*HealthStatus, error) {
	h.mu.RLock()
	checks := append([]Check(nil), h.readinessChecks...)
	h.mu.RUnlock()
	return h.run(ctx, checks)
}

func (h *HealthChecker) run(ctx context.Context, checks []Check) (*HealthStatus, error) {
	status := &HealthStatus{Healthy: true, Checks: make([]CheckResult, len(checks))}

	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			status.Checks[i] = h.runOne(ctx, c)
		}(i, c)
	}
	wg.Wait()

	var failed []string
	for _, r := range status.Checks {
		if !r.Healthy {
			status.Healthy = false
			failed = append(failed, r.Name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return status, fmt.Errorf("health checks failed: %v", failed)
	}
	return status, nil
}

func (h *HealthChecker) runOne(parent context.Context, c Check) CheckResult {
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx)
	res := CheckResult{Name: c.Name(), Healthy: true, Latency: time.Since(start)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		h.failures[res.Name] = 0
		h.logger.Debug("Health check passed",
			logger.StringField("check", res.Name),
			logger.DurationField("latency", res.Latency))
		return res
	}

	h.failures[res.Name]++
	n := h.failures[res.Name]
	if n < h.failureThreshold {
		h.logger.Debug("Health check failed but below threshold",
			logger.StringField("check", res.Name),
			logger.ErrorField(err),
			logger.IntField("failures", n),
			logger.IntField("threshold", h.failureThreshold))
		return res
	}

	res.Healthy = false
	res.Error = err.Error()
	h.logger.Warn("Health check failed",
		logger.StringField("check", res.Name),
		logger.ErrorField(err),
		logger.IntField("failures", n),
		logger.DurationField("latency", res.Latency))
	return res
}
