package cli

import (
	"fmt"
	"os"

	appconfig "github.com/lewisedginton/rota/internal/config"
	"github.com/lewisedginton/rota/internal/connectors/bridge"
	"github.com/lewisedginton/rota/internal/server"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/urfave/cli/v2"
)

const metadataLogger = "logger"

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata[metadataLogger].(logger.Logger); ok {
			return log
		}
	}

	return logger.NewLogger(logger.Config{
		Level:   logger.InfoLevel,
		Format:  "json",
		Service: "rota",
		Output:  os.Stderr,
	})
}

// loadConfig reads --config-file (if any) and the environment.
func loadConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		getLogger(ctx).Error("Failed to load configuration", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// configLogger builds the logger described by cfg. An explicit --log-level wins
// over the file. Entries go to the app's error writer so stdout stays readable.
func configLogger(ctx *cli.Context, cfg *appconfig.AppConfig) logger.Logger {
	lc := cfg.LoggerConfig()
	if ctx.IsSet("log-level") {
		lc.Level = logger.ParseLevel(ctx.String("log-level"))
	}
	lc.Output = ctx.App.ErrWriter
	return logger.NewLogger(lc)
}

// withComponents builds a local bot for the length of fn.
func withComponents(ctx *cli.Context, fn func(*server.Components) error) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log := configLogger(ctx, cfg)

	c, err := server.Build(ctx.Context, cfg, log)
	if err != nil {
		log.Error("Failed to build rota", logger.ErrorField(err))
		return err
	}
	defer c.Close()
	return fn(c)
}

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Usage:   "Base URL of a running rota service; when set the command talks to it instead of a local bot",
		EnvVars: []string{"ROTA_SERVER"},
	}
}

// remote returns a bridge when --server is set, nil otherwise.
func remote(ctx *cli.Context) (*bridge.Bridge, error) {
	url := ctx.String("server")
	if url == "" {
		return nil, nil
	}
	return bridge.NewBridge(bridge.Config{BaseURL: url, Logger: getLogger(ctx)})
}
