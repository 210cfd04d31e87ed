package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HealthConfig holds health endpoint settings. The endpoints share the API listener.
type HealthConfig struct {
	Enabled          bool          `env:"HEALTH_ENABLED" yaml:"enabled" default:"true"`
	LivenessPath     string        `env:"HEALTH_LIVENESS_PATH" yaml:"liveness_path" default:"/health/live"`
	ReadinessPath    string        `env:"HEALTH_READINESS_PATH" yaml:"readiness_path" default:"/health/ready"`
	Timeout          time.Duration `env:"HEALTH_TIMEOUT" yaml:"timeout" default:"10s"`
	FailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`
}

func (h HealthConfig) Validate() error {
	var result error
	if !h.Enabled {
		return nil
	}
	for _, p := range []string{h.LivenessPath, h.ReadinessPath} {
		if !strings.HasPrefix(p, "/") {
			result = multierror.Append(result, fmt.Errorf("health path %q must start with '/'", p))
		}
	}
	if h.FailureThreshold < 1 {
		result = multierror.Append(result, fmt.Errorf("health failure_threshold must be positive"))
	}
	return result
}

// RedisConfig points at the Redis server used by the redis storage backend.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" yaml:"addr"`
	Password string        `env:"REDIS_PASSWORD" yaml:"-"`
	DB       int           `env:"REDIS_DB" yaml:"db"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT" yaml:"timeout" default:"5s"`
}

// TelegramConfig enables the Telegram front end when BotToken is set.
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN" yaml:"-"`
	Debug    bool   `env:"TELEGRAM_DEBUG" yaml:"debug"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

// SlackConfig enables the Slack front end when both tokens are set.
type SlackConfig struct {
	BotToken string `env:"SLACK_BOT_TOKEN" yaml:"-"`
	AppToken string `env:"SLACK_APP_TOKEN" yaml:"-"`
	Debug    bool   `env:"SLACK_DEBUG" yaml:"debug"`
}

func (c SlackConfig) Enabled() bool {
	return c.BotToken != "" && c.AppToken != ""
}

// SecurityConfig holds the HTTP API's browser and abuse limits.
type SecurityConfig struct {
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"http://localhost:3000,http://localhost:8080"`
	MaxRequestSize     int64    `env:"MAX_REQUEST_SIZE" yaml:"max_request_size" default:"65536"`
	RateLimitEnabled   bool     `env:"RATE_LIMIT_ENABLED" yaml:"rate_limit_enabled" default:"true"`
	RateLimitRPS       int      `env:"RATE_LIMIT_RPS" yaml:"rate_limit_rps" default:"20"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" yaml:"rate_limit_burst" default:"40"`
}

func (s SecurityConfig) Validate() error {
	var result error
	if s.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}
	if s.RateLimitEnabled && (s.RateLimitRPS <= 0 || s.RateLimitBurst <= 0) {
		result = multierror.Append(result, fmt.Errorf("rate limit rps and burst must be greater than 0"))
	}
	return result
}
