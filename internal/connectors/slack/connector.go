// Package slack relays Slack direct messages, mentions and slash commands through the
// executor over Socket Mode.
package slack

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/sessionid"
)

const errorReply = "Sorry, I encountered an error processing your message."

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)

// Connector represents the Slack Socket Mode connector
type Connector struct {
	client     *slack.Client
	socketMode *socketmode.Client
	executor   *executor.Executor
	commands   *CommandRegistry
	logger     logger.Logger
}

// Config holds configuration for the Slack connector
type Config struct {
	BotToken string // xoxb-*
	AppToken string // xapp-*
	Debug    bool
	Logger   logger.Logger
}

func NewConnector(config Config, exec *executor.Executor) (*Connector, error) {
	if !strings.HasPrefix(config.BotToken, "xoxb-") {
		return nil, fmt.Errorf("invalid bot token format, expected xoxb-*")
	}
	if !strings.HasPrefix(config.AppToken, "xapp-") {
		return nil, fmt.Errorf("invalid app token format, expected xapp-*")
	}
	c, err := newConnector(config, exec)
	if err != nil {
		return nil, err
	}

	c.client = slack.New(
		config.BotToken,
		slack.OptionAppLevelToken(config.AppToken),
		slack.OptionDebug(config.Debug),
	)
	c.socketMode = socketmode.New(c.client, socketmode.OptionDebug(config.Debug))
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
		logger:   log.WithFields(logger.StringField("connector", "slack")),
	}
	c.setupCommands()
	return c, nil
}

// Start runs the Socket Mode connection until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("Starting Slack Socket Mode connector")

	go func() {
		for envelope := range c.socketMode.Events {
			switch envelope.Type {
			case socketmode.EventTypeConnecting:
				c.logger.Info("Connecting to Slack with Socket Mode")

			case socketmode.EventTypeConnectionError:
				c.logger.Warn("Slack connection failed", logger.StringField("data", fmt.Sprintf("%v", envelope.Data)))

			case socketmode.EventTypeConnected:
				c.logger.Info("Connected to Slack with Socket Mode")

			case socketmode.EventTypeHello:

			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := envelope.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				c.socketMode.Ack(*envelope.Request)
				if err := c.handleEvent(ctx, eventsAPIEvent); err != nil {
					c.logger.Error("Failed to handle event", logger.ErrorField(err))
				}

			case socketmode.EventTypeSlashCommand:
				c.handleSlashCommand(ctx, envelope)

			case socketmode.EventTypeInteractive:
				c.socketMode.Ack(*envelope.Request)

			default:
				c.logger.Debug("Unsupported event type", logger.StringField("type", string(envelope.Type)))
			}
		}
	}()

	return c.socketMode.RunContext(ctx)
}

// Ready checks the bot token against Slack.
func (c *Connector) Ready(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("slack client not initialized")
	}
	_, err := c.client.AuthTestContext(ctx)
	return err
}

func (c *Connector) handleEvent(ctx context.Context, event slackevents.EventsAPIEvent) error {
	if event.Type != slackevents.CallbackEvent {
		return nil
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Only direct messages; channel traffic arrives as mentions.
		if ev.BotID != "" || ev.SubType != "" || !strings.HasPrefix(ev.Channel, "D") {
			return nil
		}
		return c.post(ctx, ev.Channel, c.reply(ctx, ev.User, ev.Channel, ev.Text))
	case *slackevents.AppMentionEvent:
		text := removeMentions(ev.Text)
		if text == "" {
			return nil
		}
		return c.post(ctx, ev.Channel, c.reply(ctx, ev.User, ev.Channel, text))
	}
	return nil
}

// reply produces the text to send back for one incoming message.
func (c *Connector) reply(ctx context.Context, user, channel, text string) string {
	log := c.logger.WithFields(
		logger.StringField("user_id", user),
		logger.StringField("channel_id", channel))

	resp, err := c.executor.Execute(ctx, executor.MessageRequest{
		UserID:    user,
		SessionID: SessionID(user, channel),
		Message:   text,
	})
	if err != nil && resp.Text == "" {
		log.Error("Executor failed", logger.ErrorField(err))
		return errorReply
	}
	return resp.Text
}

func (c *Connector) post(ctx context.Context, channel, text string) error {
	if text == "" {
		return nil
	}
	if _, _, err := c.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

// removeMentions strips <@U123> and <@U123|name> mentions.
func removeMentions(text string) string {
	return strings.Join(strings.Fields(mentionPattern.ReplaceAllString(text, " ")), " ")
}

// SessionID is stable for a user in a channel.
func SessionID(user, channel string) string {
	return sessionid.Derive("slack", user, channel).String()
}

// Stop is a no-op; the connection ends when the Start context is cancelled.
func (c *Connector) Stop() error {
	c.logger.Info("Stopping Slack connector")
	return nil
}
