// Package config defines rota's application configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	pkgconfig "github.com/lewisedginton/rota/pkg/config"
	"github.com/lewisedginton/rota/pkg/logger"
)

// AppConfig is loaded with pkgconfig.GetConfig from an optional YAML file plus the
// environment.
type AppConfig struct {
	Service   ServiceConfig              `yaml:"service"`
	Logging   pkgconfig.LoggingConfig    `yaml:"logging"`
	Persona   PersonaConfig              `yaml:"persona"`
	Engine    EngineConfig               `yaml:"engine"`
	Knowledge KnowledgeConfig            `yaml:"knowledge"`
	Search    SearchConfig               `yaml:"search"`
	Learner   LearnerConfig              `yaml:"learner"`
	Storage   StorageConfig              `yaml:"storage"`
	HTTP      pkgconfig.HTTPServerConfig `yaml:"http"`
	Metrics   pkgconfig.MetricsConfig    `yaml:"metrics"`
	Health    HealthConfig               `yaml:"health"`
	Database  pkgconfig.DatabaseConfig   `yaml:"database"`
	Redis     RedisConfig                `yaml:"redis"`
	Telegram  TelegramConfig             `yaml:"telegram"`
	Slack     SlackConfig                `yaml:"slack"`
	Security  SecurityConfig             `yaml:"security"`
}

// ServiceConfig identifies the running process.
type ServiceConfig struct {
	Name        string `env:"SERVICE_NAME" yaml:"name" default:"rota"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`
}

// Load reads path (optional) and the environment into a validated AppConfig.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := pkgconfig.GetConfig(cfg, path, path == ""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate aggregates every configuration problem into one error.
func (c *AppConfig) Validate() error {
	var result error
	add := func(err error) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	add(c.Logging.Validate())
	add(c.HTTP.Validate())
	add(c.Metrics.Validate())
	add(c.Persona.Validate())
	add(c.Engine.Validate())
	add(c.Knowledge.Validate())
	add(c.Search.Validate())
	add(c.Learner.Validate())
	add(c.Storage.Validate())
	add(c.Health.Validate())
	add(c.Security.Validate())

	if c.Knowledge.Backend == KnowledgeBackendPostgres {
		add(c.Database.Validate())
	}
	if c.Storage.Backend == "redis" && c.Redis.Addr == "" {
		add(fmt.Errorf("redis addr is required for the redis storage backend"))
	}
	return result
}

// LoggerConfig maps the logging section onto pkg/logger.
func (c *AppConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:   logger.ParseLevel(c.Logging.Level),
		Format:  strings.ToLower(c.Logging.Format),
		Service: c.Service.Name,
	}
}

// IsProduction reports whether Service.Environment is "production".
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Service.Environment, "production")
}
