package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	LoggingConfig    `yaml:"logging,inline"`
	HTTPServerConfig `yaml:"http,inline"`
	MetricsConfig    `yaml:"metrics,inline"`

	APIKey   string        `env:"TEST_API_KEY" yaml:"api_key" required:"true"`
	Interval time.Duration `env:"TEST_INTERVAL" yaml:"interval" default:"10s"`
	Ratio    float64       `env:"TEST_RATIO" yaml:"ratio" default:"0.6"`
	Features []string      `env:"TEST_FEATURES" yaml:"features"`
	Debug    bool          `env:"TEST_DEBUG" yaml:"debug"`
}

func (c *testConfig) Validate() error {
	if err := c.LoggingConfig.Validate(); err != nil {
		return err
	}
	return c.HTTPServerConfig.Validate()
}

func TestGetConfigFromEnvVars(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c testConfig)
		wantErr string
	}{
		{
			name: "defaults applied",
			env:  map[string]string{"TEST_API_KEY": "k"},
			check: func(t *testing.T, c testConfig) {
				assert.Equal(t, "k", c.APIKey)
				assert.Equal(t, "info", c.Level)
				assert.Equal(t, "json", c.Format)
				assert.Equal(t, 8080, c.HTTPServerConfig.Port)
				assert.Equal(t, 10*time.Second, c.Interval)
				assert.InDelta(t, 0.6, c.Ratio, 1e-9)
				assert.True(t, c.EnableHTTPMetrics)
				assert.False(t, c.Debug)
			},
		},
		{
			name: "env overrides",
			env: map[string]string{
				"TEST_API_KEY":  "k",
				"HTTP_PORT":     "9999",
				"TEST_INTERVAL": "1m",
				"TEST_FEATURES": "a, b ,c",
				"TEST_DEBUG":    "true",
				"LOG_LEVEL":     "debug",
			},
			check: func(t *testing.T, c testConfig) {
				assert.Equal(t, 9999, c.HTTPServerConfig.Port)
				assert.Equal(t, time.Minute, c.Interval)
				assert.Equal(t, []string{"a", "b", "c"}, c.Features)
				assert.True(t, c.Debug)
				assert.Equal(t, "debug", c.Level)
			},
		},
		{
			name:    "missing required",
			env:     map[string]string{},
			wantErr: "TEST_API_KEY",
		},
		{
			name:    "bad int",
			env:     map[string]string{"TEST_API_KEY": "k", "HTTP_PORT": "eighty"},
			wantErr: "HTTP_PORT",
		},
		{
			name:    "validator runs",
			env:     map[string]string{"TEST_API_KEY": "k", "LOG_LEVEL": "loud"},
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var c testConfig
			err := GetConfigFromEnvVars(&c)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestGetConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: from-file\nhttp_port: 7000\ninterval: 3s\n"), 0o600))

	t.Run("file values kept", func(t *testing.T) {
		var c testConfig
		require.NoError(t, GetConfig(&c, path, false))
		assert.Equal(t, "from-file", c.APIKey)
		assert.Equal(t, 7000, c.HTTPServerConfig.Port)
		assert.Equal(t, 3*time.Second, c.Interval)
		assert.Equal(t, "info", c.Level)
	})

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "7001")
		var c testConfig
		require.NoError(t, GetConfig(&c, path, false))
		assert.Equal(t, 7001, c.HTTPServerConfig.Port)
	})

	t.Run("missing file", func(t *testing.T) {
		var c testConfig
		err := GetConfig(&c, filepath.Join(t.TempDir(), "nope.yaml"), false)
		require.Error(t, err)

		t.Setenv("TEST_API_KEY", "env")
		require.NoError(t, GetConfig(&c, filepath.Join(t.TempDir(), "nope.yaml"), true))
		assert.Equal(t, "env", c.APIKey)
	})
}

func TestDatabaseConnectionConfig(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Database: "rota", Username: "u", Password: "p", SSLMode: "disable",
		MaxConnections: 5, MinConnections: 1, MaxIdleTime: time.Minute, MaxLifetime: time.Hour, ConnectTimeout: 5 * time.Second}
	assert.Equal(t, "postgres://u:p@db:5432/rota?sslmode=disable", d.GetConnectionString())
	assert.Contains(t, d.GetConnectionConfig(), "?sslmode=disable&pool_max_conns=5")
	assert.NoError(t, d.Validate())

	d.URL = "postgres://x@y/z"
	assert.Contains(t, d.GetConnectionConfig(), "postgres://x@y/z?pool_max_conns=5")

	d.MinConnections = 9
	assert.Error(t, d.Validate())
}

func TestMetricsConfigValidate(t *testing.T) {
	assert.NoError(t, MetricsConfig{Port: 0}.Validate())
	assert.Error(t, MetricsConfig{Port: 0, ExposeMetrics: true}.Validate())
}
