package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/mood"
	"github.com/lewisedginton/rota/pkg/logger"
)

// CommandHandler handles a specific slash command
type CommandHandler func(ctx context.Context, cmd slack.SlashCommand) (interface{}, error)

// CommandRegistry manages slash command handlers
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

// Handle processes a slash command event
func (r *CommandRegistry) Handle(ctx context.Context, cmd slack.SlashCommand) (interface{}, error) {
	handler, exists := r.handlers[cmd.Command]
	if !exists {
		return textResponse(fmt.Sprintf("Unknown command: %s", cmd.Command)), nil
	}
	return handler(ctx, cmd)
}

func textResponse(text string) map[string]interface{} {
	return map[string]interface{}{"text": text}
}

func (c *Connector) handleMoodCommand(_ context.Context, _ slack.SlashCommand) (interface{}, error) {
	label := c.executor.Mood()
	return textResponse(fmt.Sprintf("Current mood: %s %s", label, mood.Emoji(label))), nil
}

func (c *Connector) handleLearnCommand(ctx context.Context, cmd slack.SlashCommand) (interface{}, error) {
	resp, err := c.executor.Execute(ctx, executor.MessageRequest{
		UserID:    cmd.UserID,
		SessionID: SessionID(cmd.UserID, cmd.ChannelID),
		Message:   "auto-learn",
	})
	if err != nil {
		return textResponse("Failed to update knowledge."), err
	}
	return textResponse(resp.Text), nil
}

func (c *Connector) handleHelpCommand(_ context.Context, _ slack.SlashCommand) (interface{}, error) {
	helpText := `*Available Commands:*

• */mood* - Show my current mood
• */learn* - Fetch new knowledge from the web
• */help* - Show this help message`

	return textResponse(helpText), nil
}

// setupCommands initialises the command registry with all available commands
func (c *Connector) setupCommands() {
	c.commands = NewCommandRegistry()
	c.commands.Register("/mood", c.handleMoodCommand)
	c.commands.Register("/learn", c.handleLearnCommand)
	c.commands.Register("/help", c.handleHelpCommand)
}

// handleSlashCommand processes incoming slash command events
func (c *Connector) handleSlashCommand(ctx context.Context, envelope socketmode.Event) {
	cmd, ok := envelope.Data.(slack.SlashCommand)
	if !ok {
		c.logger.Warn("Failed to parse slash command data", logger.StringField("data", fmt.Sprintf("%+v", envelope.Data)))
		c.socketMode.Ack(*envelope.Request)
		return
	}

	c.logger.Info("Received slash command",
		logger.StringField("command", cmd.Command),
		logger.StringField("user_id", cmd.UserID),
		logger.StringField("channel_id", cmd.ChannelID))

	response, err := c.commands.Handle(ctx, cmd)
	if err != nil {
		c.logger.Error("Error handling command",
			logger.StringField("command", cmd.Command),
			logger.ErrorField(err))
		response = textResponse("An error occurred while processing your command.")
	}

	c.socketMode.Ack(*envelope.Request, response)
}
