package cli

import (
	"fmt"
	"strings"

	"github.com/lewisedginton/rota/internal/server"
	"github.com/urfave/cli/v2"
)

// AskCommand answers one question from the knowledge cache.
func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Look a question up in the learned knowledge",
		ArgsUsage: "<question>",
		Flags:     []cli.Flag{serverFlag()},
		Action: func(ctx *cli.Context) error {
			question := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
			if question == "" {
				return fmt.Errorf("a question is required")
			}

			b, err := remote(ctx)
			if err != nil {
				return err
			}
			if b != nil {
				answer, err := b.Lookup(ctx.Context, question)
				if err != nil {
					return err
				}
				fmt.Fprintln(ctx.App.Writer, answer)
				return nil
			}

			return withComponents(ctx, func(c *server.Components) error {
				fmt.Fprintln(ctx.App.Writer, c.Knowledge.Lookup(question))
				return nil
			})
		},
	}
}
