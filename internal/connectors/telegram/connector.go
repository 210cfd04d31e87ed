package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/sessionid"
)

const errorReply = "Sorry, I encountered an error processing your message."

// Connector relays Telegram text messages through the executor.
type Connector struct {
	bot      *bot.Bot
	executor *executor.Executor
	commands *CommandRegistry
	logger   logger.Logger
}

// Config holds configuration for the Telegram connector
type Config struct {
	BotToken string // Bot token from @BotFather
	Debug    bool
	Logger   logger.Logger
}

// NewConnector creates the bot client. Polling starts with Start.
func NewConnector(config Config, exec *executor.Executor) (*Connector, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	c, err := newConnector(config, exec)
	if err != nil {
		return nil, err
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(c.handleUpdate),
	}
	if config.Debug {
		opts = append(opts, bot.WithDebug())
	}

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	c.bot = b
	c.logger.Info("Telegram bot initialized")
	return c, nil
}

func newConnector(config Config, exec *executor.Executor) (*Connector, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}
	c := &Connector{
		executor: exec,
		logger:   log.WithFields(logger.StringField("connector", "telegram")),
	}
	c.setupCommands()
	return c, nil
}

// Start polls for updates until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("Starting Telegram bot polling")
	c.bot.Start(ctx)
	return nil
}

// Ready reports whether the bot can reach Telegram.
func (c *Connector) Ready(ctx context.Context) error {
	if c.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}
	_, err := c.bot.GetMe(ctx)
	return err
}

func (c *Connector) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if update.Message.From != nil && update.Message.From.IsBot {
		return
	}

	var userID int64
	if update.Message.From != nil {
		userID = update.Message.From.ID
	}
	reply := c.reply(ctx, userID, update.Message.Chat.ID, update.Message.Text)
	if reply == "" {
		return
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   reply,
	}); err != nil {
		c.logger.Error("Failed to send Telegram message", logger.ErrorField(err))
	}
}

// reply produces the text to send back for one incoming message.
func (c *Connector) reply(ctx context.Context, userID, chatID int64, text string) string {
	log := c.logger.WithFields(
		logger.Int64Field("user_id", userID),
		logger.Int64Field("chat_id", chatID))

	if c.commands.IsCommand(text) {
		log.Info("Processing command", logger.StringField("command", text))
		resp, err := c.commands.Handle(ctx, text)
		if err != nil {
			log.Error("Command failed", logger.StringField("command", text), logger.ErrorField(err))
			return "An error occurred while processing your command."
		}
		return resp
	}

	resp, err := c.executor.Execute(ctx, executor.MessageRequest{
		UserID:    strconv.FormatInt(userID, 10),
		SessionID: SessionID(userID, chatID),
		Message:   text,
	})
	if err != nil && resp.Text == "" {
		log.Error("Executor failed", logger.ErrorField(err))
		return errorReply
	}
	return resp.Text
}

// SessionID is stable for a user in a chat.
func SessionID(userID, chatID int64) string {
	return sessionid.Derive("telegram", strconv.FormatInt(userID, 10), strconv.FormatInt(chatID, 10)).String()
}

// Stop is a no-op; polling ends when the Start context is cancelled.
func (c *Connector) Stop() error {
	c.logger.Info("Stopping Telegram connector")
	return nil
}
