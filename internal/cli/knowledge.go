package cli

import (
	"encoding/json"
	"fmt"

	"github.com/lewisedginton/rota/internal/server"
	"github.com/urfave/cli/v2"
)

// KnowledgeCommand returns commands that inspect and maintain the learned records.
func KnowledgeCommand() *cli.Command {
	return &cli.Command{
		Name:    "knowledge",
		Aliases: []string{"k"},
		Usage:   "Knowledge operations",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the learned records",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print records as a JSON array"},
				},
				Action: knowledgeListAction,
			},
			{
				Name:  "dedup",
				Usage: "Remove duplicate records",
				Action: func(ctx *cli.Context) error {
					return withComponents(ctx, func(c *server.Components) error {
						removed, err := c.Knowledge.Deduplicate(ctx.Context)
						if err != nil {
							return fmt.Errorf("deduplication failed: %w", err)
						}
						fmt.Fprintf(ctx.App.Writer, "Removed %d duplicate records, %d left.\n", removed, c.Knowledge.Len())
						return nil
					})
				},
			},
		},
	}
}

func knowledgeListAction(ctx *cli.Context) error {
	return withComponents(ctx, func(c *server.Components) error {
		records := c.Knowledge.Records()
		if ctx.Bool("json") {
			enc := json.NewEncoder(ctx.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		for _, r := range records {
			fmt.Fprintf(ctx.App.Writer, "Q: %s\nA: %s\n", r.Question, r.Answer)
			if r.Source != "" {
				fmt.Fprintf(ctx.App.Writer, "   (%s, %s)\n", r.Source, r.Date)
			}
			fmt.Fprintln(ctx.App.Writer)
		}
		fmt.Fprintf(ctx.App.Writer, "%d records\n", len(records))
		return nil
	})
}
