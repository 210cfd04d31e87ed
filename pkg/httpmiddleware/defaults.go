// Package httpmiddleware assembles the chi middleware stack used by the HTTP API.
package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/unrolled/secure"
)

// Config selects and parameterises the middleware applied by ApplyToRouter.
type Config struct {
	Logger       logger.Logger
	StripPrefix  string
	CORS         *CORSConfig
	Security     *secure.Options
	Timeout      time.Duration
	MaxBodyBytes int64
	// RateLimit enables per-client limiting when set.
	RateLimit *RateLimitConfig

	// Instrument wraps each request, typically metrics.Metrics.HTTPMiddleware().
	Instrument func(http.Handler) http.Handler
	// Recoverer replaces chi's middleware.Recoverer when set.
	Recoverer func(http.Handler) http.Handler

	EnableCorrelationID bool
	EnableLogging       bool
	EnableRecovery      bool
	EnableCORS          bool
	EnableSecurity      bool
	EnableCompression   bool
	EnableHeartbeat     bool
	EnableRealIP        bool
	EnableTimeout       bool
}

// DefaultConfig enables everything except logging, which needs a Logger.
func DefaultConfig() Config {
	corsConfig := DefaultCORSConfig()
	return Config{
		CORS:                &corsConfig,
		Timeout:             60 * time.Second,
		EnableCorrelationID: true,
		EnableRecovery:      true,
		EnableCORS:          true,
		EnableSecurity:      true,
		EnableCompression:   true,
		EnableHeartbeat:     true,
		EnableRealIP:        true,
		EnableTimeout:       true,
	}
}

// WithLogger applies DefaultConfig with request logging through log.
func WithLogger(router chi.Router, log logger.Logger) {
	config := DefaultConfig()
	config.Logger = log
	config.EnableLogging = true
	ApplyToRouter(router, config)
}

// ApplyToRouter installs the configured middleware, outermost first:
// correlation ID, security headers, real IP, rate limit, instrumentation, logging, recovery,
// prefix stripping, CORS, body limit, timeout, compression, heartbeat.
func ApplyToRouter(router chi.Router, config Config) {
	if config.EnableCorrelationID {
		router.Use(CorrelationID())
	}
	if config.EnableSecurity {
		router.Use(Security(config.Security))
	}
	if config.EnableRealIP {
		router.Use(middleware.RealIP)
	}
	if config.RateLimit != nil {
		router.Use(RateLimit(*config.RateLimit))
	}
	if config.Instrument != nil {
		router.Use(config.Instrument)
	}
	if config.EnableLogging && config.Logger != nil {
		router.Use(config.Logger.HTTPMiddleware)
	}
	if config.EnableRecovery {
		if config.Recoverer != nil {
			router.Use(config.Recoverer)
		} else {
			router.Use(middleware.Recoverer)
		}
	}
	if config.StripPrefix != "" {
		router.Use(StripPrefix(config.StripPrefix))
	}
	if config.EnableCORS && config.CORS != nil {
		router.Use(CORS(*config.CORS))
	}
	if config.MaxBodyBytes > 0 {
		router.Use(MaxBodySize(config.MaxBodyBytes))
	}
	if config.EnableTimeout && config.Timeout > 0 {
		router.Use(middleware.Timeout(config.Timeout))
	}
	if config.EnableCompression {
		router.Use(middleware.Compress(5))
	}
	if config.EnableHeartbeat {
		router.Use(middleware.Heartbeat("/ping"))
	}
}
