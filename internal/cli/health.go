package cli

import (
	"encoding/json"
	"fmt"

	"github.com/lewisedginton/rota/internal/monitoring"
	"github.com/lewisedginton/rota/internal/server"
	"github.com/urfave/cli/v2"
)

// HealthCommand checks a running service, or the dependencies a local bot would use.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check rota's dependencies or a running service",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.StringFlag{
				Name:  "path",
				Usage: "Health endpoint to query with --server",
				Value: "/health/ready",
			},
		},
		Action: healthAction,
	}
}

func healthAction(ctx *cli.Context) error {
	b, err := remote(ctx)
	if err != nil {
		return err
	}
	if b != nil {
		body, err := b.HealthCheck(ctx.Context, ctx.String("path"))
		if body != "" {
			fmt.Fprintln(ctx.App.Writer, body)
		}
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(ctx.App.Writer, "✅ Health check passed")
		return nil
	}

	return withComponents(ctx, func(c *server.Components) error {
		report := server.NewHealthMonitor(c, nil).Check(ctx.Context)
		enc := json.NewEncoder(ctx.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if report.Status != monitoring.StatusHealthy {
			return fmt.Errorf("health check failed: %s", report.Status)
		}
		return nil
	})
}
