package cli

import (
	"fmt"

	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// ConfigCommand returns a command for configuration operations
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Configuration operations",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate configuration",
				Action: configValidateAction,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration as YAML (credentials omitted)",
				Action: configShowAction,
			},
		},
	}
}

func configValidateAction(ctx *cli.Context) error {
	log := getLogger(ctx)
	log.Info("Validating configuration")

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Configuration validation failed", logger.ErrorField(err))
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration validation passed")
	fmt.Fprintf(ctx.App.Writer, "Configuration is valid (storage: %s, knowledge: %s, search enabled: %t)\n",
		cfg.Storage.Backend, cfg.Knowledge.Backend, cfg.Search.Enabled())
	return nil
}

func configShowAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(ctx.App.Writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
