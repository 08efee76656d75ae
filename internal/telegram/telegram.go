// Package telegram wraps the Telegram Bot API client for GoalPipe.
//
// It provides long-polling for incoming text messages and sending replies by chat ID.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Constants for Telegram client configuration
const (
	// DefaultPollTimeout is the long-poll timeout in seconds for getUpdates.
	DefaultPollTimeout = 60
	// DefaultUpdateBuffer is the buffer size of the incoming message channel.
	DefaultUpdateBuffer = 100
)

// ErrEmptyToken is returned when no bot token is supplied.
var ErrEmptyToken = errors.New("telegram bot token cannot be empty")

// Incoming is one text message received from a Telegram chat.
type Incoming struct {
	ChatID int64
	UserID int64
	Text   string
	Time   time.Time
}

// TelegramClient is an interface for the Telegram transport (for production and testing).
type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, body string) error
	Updates(ctx context.Context) <-chan Incoming
}

// Opts holds configuration options for the Telegram client.
type Opts struct {
	APIEndpoint string // custom Bot API endpoint, e.g. a local bot API server
	Debug       bool   // log raw Bot API traffic
	PollTimeout int    // long-poll timeout in seconds
}

// Option defines a configuration option for the Telegram client.
type Option func(*Opts)

// WithAPIEndpoint points the client at a different Bot API server.
// The endpoint uses the tgbotapi format, e.g. "http://localhost:8081/bot%s/%s".
func WithAPIEndpoint(endpoint string) Option {
	return func(o *Opts) {
		o.APIEndpoint = endpoint
	}
}

// WithDebug enables Bot API request logging.
func WithDebug(debug bool) Option {
	return func(o *Opts) {
		o.Debug = debug
	}
}

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *Opts) {
		if seconds > 0 {
			o.PollTimeout = seconds
		}
	}
}

// Client wraps the tgbotapi client for modular use
type Client struct {
	bot  *tgbotapi.BotAPI
	opts Opts
}

// NewClient authenticates with the Bot API using token and returns a ready client.
func NewClient(token string, opts ...Option) (*Client, error) {
	cfg := Opts{APIEndpoint: tgbotapi.APIEndpoint, PollTimeout: DefaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	slog.Debug("Telegram NewClient options set", "custom_endpoint", cfg.APIEndpoint != tgbotapi.APIEndpoint, "debug", cfg.Debug, "pollTimeout", cfg.PollTimeout)

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, cfg.APIEndpoint)
	if err != nil {
		slog.Error("Failed to authorize Telegram bot", "error", err)
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	slog.Info("Telegram bot authorized")
	return &Client{bot: bot, opts: cfg}, nil
}

// Username returns the bot's @username without the leading @.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, body string) error {
	if body == "" {
		return fmt.Errorf("message body cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Debug("Sending Telegram message", "chatID", chatID, "body_length", len(body))
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, body)); err != nil {
		slog.Error("Failed to send Telegram message", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// Updates starts long-polling and returns a channel of incoming text messages.
// The channel is closed after ctx is cancelled.
func (c *Client) Updates(ctx context.Context) <-chan Incoming {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.opts.PollTimeout
	updates := c.bot.GetUpdatesChan(u)

	out := make(chan Incoming, DefaultUpdateBuffer)
	go func() {
		defer close(out)
		defer c.bot.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				slog.Debug("Telegram Updates stopping due to context cancellation")
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				in, ok := IncomingFromUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- in:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// IncomingFromUpdate extracts a text message from an update. Updates without a
// text message (edits, callbacks, stickers) are skipped.
func IncomingFromUpdate(update tgbotapi.Update) (Incoming, bool) {
	m := update.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return Incoming{}, false
	}
	in := Incoming{ChatID: m.Chat.ID, UserID: m.Chat.ID, Text: m.Text, Time: m.Time()}
	if m.From != nil {
		in.UserID = m.From.ID
	}
	return in, true
}

// MockClient implements TelegramClient without network access (for tests).
type MockClient struct {
	mu      sync.Mutex
	Sent    []SentMessage
	Inbox   chan Incoming
	SendErr error
}

// SentMessage is one message recorded by MockClient.
type SentMessage struct {
	ChatID int64
	Body   string
}

// NewMockClient creates a MockClient. Push messages into Inbox to simulate users.
func NewMockClient() *MockClient {
	return &MockClient{Inbox: make(chan Incoming, DefaultUpdateBuffer)}
}

func (m *MockClient) SendMessage(ctx context.Context, chatID int64, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, Body: body})
	return nil
}

func (m *MockClient) Updates(ctx context.Context) <-chan Incoming {
	return m.Inbox
}

// Messages returns a copy of everything sent so far.
func (m *MockClient) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}
