package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	appconfig "github.com/lewisedginton/rota/internal/config"
	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/server"
	"github.com/lewisedginton/rota/pkg/sessionid"
	"github.com/urfave/cli/v2"
)

// ChatCommand returns the interactive terminal chat.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Chat with rota in the terminal",
		Flags:  []cli.Flag{serverFlag()},
		Action: chatAction,
	}
}

type replyFunc func(ctx context.Context, text string) (executor.MessageResponse, error)

func chatAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	session := sessionid.New("cli").String()

	b, err := remote(ctx)
	if err != nil {
		return err
	}
	if b != nil {
		return chatLoop(ctx.Context, ctx.App.Reader, ctx.App.Writer, cfg.Persona,
			func(rctx context.Context, text string) (executor.MessageResponse, error) {
				resp, err := b.SendMessage(rctx, executor.MessageRequest{Message: text, SessionID: session})
				if err != nil {
					return executor.MessageResponse{}, err
				}
				resp.Exit = executor.IsExit(text)
				return *resp, nil
			})
	}

	return withComponents(ctx, func(c *server.Components) error {
		return chatLoop(ctx.Context, ctx.App.Reader, ctx.App.Writer, cfg.Persona,
			func(rctx context.Context, text string) (executor.MessageResponse, error) {
				return c.Executor.Execute(rctx, executor.MessageRequest{
					UserID:    "terminal",
					SessionID: session,
					Message:   text,
				})
			})
	})
}

// chatLoop reads one message per line until an exit word, EOF or cancellation.
// Failed replies are printed and the conversation goes on.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, persona appconfig.PersonaConfig, reply replyFunc) error {
	fmt.Fprintf(out, "%s (by %s) is ready. Type 'exit' to quit, 'auto-learn' to fetch new knowledge.\n",
		persona.Name, persona.Creator)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		resp, err := reply(ctx, text)
		if err != nil && resp.Text == "" {
			fmt.Fprintf(out, "%s: (error: %v)\n", persona.Name, err)
		} else {
			fmt.Fprintf(out, "%s: %s\n", persona.Name, resp.Text)
		}
		if resp.Exit {
			return nil
		}
	}
}
