// Package cli holds rota's command line: a terminal chat, one-shot knowledge
// commands, learning jobs and the long-running service.
package cli

import (
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/urfave/cli/v2"
)

// NewApp builds the rota command line application.
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "rota",
		Usage:   "A moody little chatbot that learns answers from the web",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config-file",
				Value:   "",
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Before: func(ctx *cli.Context) error {
			log := logger.NewLogger(logger.Config{
				Level:   logger.ParseLevel(ctx.String("log-level")),
				Format:  "json",
				Service: "rota",
				Output:  ctx.App.ErrWriter,
			})
			if ctx.App.Metadata == nil {
				ctx.App.Metadata = map[string]interface{}{}
			}
			ctx.App.Metadata[metadataLogger] = log
			return nil
		},
		Commands: []*cli.Command{
			ChatCommand(),
			AskCommand(),
			LearnCommand(),
			KnowledgeCommand(),
			ConfigCommand(),
			HealthCommand(),
			ServeCommand(),
		},
	}
}
