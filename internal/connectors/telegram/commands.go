package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/mood"
)

// CommandHandler handles one bot command. args is the text after the command.
type CommandHandler func(ctx context.Context, args string) (string, error)

// CommandRegistry maps "/command" to its handler.
type CommandRegistry struct {
	handlers map[string]CommandHandler
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		handlers: make(map[string]CommandHandler),
	}
}

func (r *CommandRegistry) Register(command string, handler CommandHandler) {
	r.handlers[command] = handler
}

// Handle runs the command in text. Telegram's "/cmd@botname" form is accepted.
func (r *CommandRegistry) Handle(ctx context.Context, text string) (string, error) {
	if !r.IsCommand(text) {
		return "", nil
	}
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	command, _, _ := strings.Cut(parts[0], "@")
	args := ""
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}

	handler, exists := r.handlers[command]
	if !exists {
		return "Unknown command: " + command, nil
	}
	return handler(ctx, args)
}

func (r *CommandRegistry) IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func (c *Connector) setupCommands() {
	c.commands = NewCommandRegistry()
	c.commands.Register("/mood", c.handleMoodCommand)
	c.commands.Register("/learn", c.handleLearnCommand)
	c.commands.Register("/help", handleHelpCommand)
	c.commands.Register("/start", handleHelpCommand)
}

func (c *Connector) handleMoodCommand(_ context.Context, _ string) (string, error) {
	label := c.executor.Mood()
	return fmt.Sprintf("Current mood: %s %s", label, mood.Emoji(label)), nil
}

func (c *Connector) handleLearnCommand(ctx context.Context, _ string) (string, error) {
	resp, err := c.executor.Execute(ctx, executor.MessageRequest{Message: "auto-learn"})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func handleHelpCommand(context.Context, string) (string, error) {
	return "Available commands:\n" +
		"/mood - Show my current mood\n" +
		"/learn - Fetch new knowledge from the web\n" +
		"/help - Show this help message\n\n" +
		"Ask me anything starting with who, what, when, where, why or how, or just chat.", nil
}
