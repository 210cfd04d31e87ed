package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/lewisedginton/rota/internal/server"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/urfave/cli/v2"
)

// ServeCommand runs the HTTP API, the chat connectors and (optionally) the
// continuous learner until SIGINT or SIGTERM.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the rota service",
		Action:  serveAction,
	}
}

func serveAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log := configLogger(ctx, cfg)
	log.Info("Configuration loaded successfully",
		logger.StringField("environment", cfg.Service.Environment),
		logger.StringField("version", cfg.Service.Version))

	runCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := server.New(runCtx, cfg, log)
	if err != nil {
		log.Error("Failed to create server", logger.ErrorField(err))
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := s.Run(runCtx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}
