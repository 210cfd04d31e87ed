package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// MetricsConfig controls Prometheus collection and the /metrics listener.
type MetricsConfig struct {
	EnableHTTPMetrics bool `env:"METRICS_ENABLE_HTTP" yaml:"enable_http_metrics" default:"true"`
	EnableJobMetrics  bool `env:"METRICS_ENABLE_JOB" yaml:"enable_job_metrics" default:"true"`
	Port              int  `env:"METRICS_PORT" yaml:"metrics_port" default:"9090"`
	ExposeMetrics     bool `env:"METRICS_EXPOSE" yaml:"expose_metrics" default:"false"`
}

// Validate checks the port only when the listener is enabled.
func (m MetricsConfig) Validate() error {
	var result error
	if m.ExposeMetrics && (m.Port < 1 || m.Port > 65535) {
		result = multierror.Append(result, fmt.Errorf("metrics port must be between 1-65535, got %d", m.Port))
	}
	return result
}
