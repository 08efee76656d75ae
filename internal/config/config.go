// Package config loads GoalPipe process configuration from the environment.
//
// Values come from environment variables, optionally seeded from .env files.
// Command-line flags in cmd/GoalPipe override individual fields after Load.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported chat transports.
const (
	TransportTelegram       = "telegram"
	TransportWhatsApp       = "whatsapp"
	TransportTwilioWhatsApp = "twilio"
)

var (
	// ErrMissingChatToken is returned when neither the token variable nor the token file yields a token.
	ErrMissingChatToken = errors.New("telegram bot token is not configured")
	// ErrUnknownTransport is returned for a transport name GoalPipe does not support.
	ErrUnknownTransport = errors.New("unknown transport")
	// ErrMissingTwilioCredentials is returned when the twilio transport lacks its account settings.
	ErrMissingTwilioCredentials = errors.New("twilio transport requires account SID, auth token and sender number")
)

// Config is the complete process configuration.
type Config struct {
	Transport string `env:"GOALPIPE_TRANSPORT" envDefault:"telegram"`
	StateDir  string `env:"GOALPIPE_STATE_DIR" envDefault:".goalpipe"`
	DBDSN     string `env:"GOALPIPE_DB_DSN"`
	LogLevel  string `env:"GOALPIPE_LOG_LEVEL" envDefault:"info"`
	APIAddr   string `env:"API_ADDR" envDefault:":8080"`

	// MailboxSize is the number of messages queued per user before intake blocks.
	MailboxSize int `env:"GOALPIPE_MAILBOX_SIZE" envDefault:"16"`

	Telegram TelegramConfig
	Lookup   LookupConfig
	WhatsApp WhatsAppConfig
	Twilio   TwilioConfig
}

// TelegramConfig configures the Bot API transport.
type TelegramConfig struct {
	Token       string `env:"TELEGRAM_BOT_TOKEN"`
	TokenFile   string `env:"TELEGRAM_BOT_TOKEN_FILE" envDefault:"bot_token.txt"`
	APIEndpoint string `env:"TELEGRAM_API_ENDPOINT"`
	Debug       bool   `env:"TELEGRAM_DEBUG"`
}

// LookupConfig configures the weather and food lookups.
type LookupConfig struct {
	WeatherAPIKey  string        `env:"OPENWEATHER_API_KEY"`
	WeatherBaseURL string        `env:"OPENWEATHER_BASE_URL"`
	FoodBaseURL    string        `env:"OPENFOODFACTS_BASE_URL"`
	Timeout        time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"10s"`
	UserAgent      string        `env:"LOOKUP_USER_AGENT"`
}

// WhatsAppConfig configures the whatsmeow transport.
type WhatsAppConfig struct {
	DBDSN       string `env:"WHATSAPP_DB_DSN"`
	QRPath      string `env:"WHATSAPP_QR_OUTPUT"`
	NumericCode bool   `env:"WHATSAPP_NUMERIC_CODE"`
}

// TwilioConfig configures the Twilio WhatsApp transport.
type TwilioConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
	WebhookURL string `env:"TWILIO_WEBHOOK_URL"`
}

// Load reads the given .env files (default ".env") into the environment and
// parses the result. Missing env files are skipped; variables already set in
// the environment take precedence over file values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("Config.Load: env file not found", "file", file)
				continue
			}
			return Config{}, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
		slog.Debug("Config.Load: loaded env file", "file", file)
	}

	var cfg Config
	if err := parseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseEnv(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}
	return nil
}

// Validate checks the settings the selected transport needs. The Telegram
// token is checked separately by ResolveTelegramToken.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportTelegram, TransportWhatsApp:
	case TransportTwilioWhatsApp:
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.FromNumber == "" {
			return ErrMissingTwilioCredentials
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
	if c.Lookup.Timeout <= 0 {
		return fmt.Errorf("lookup timeout must be positive, got %s", c.Lookup.Timeout)
	}
	if c.MailboxSize <= 0 {
		return fmt.Errorf("mailbox size must be positive, got %d", c.MailboxSize)
	}
	return nil
}

// ResolveTelegramToken returns the bot token from TELEGRAM_BOT_TOKEN, falling
// back to the token file. Surrounding whitespace is trimmed.
func (c Config) ResolveTelegramToken() (string, error) {
	if token := strings.TrimSpace(c.Telegram.Token); token != "" {
		return token, nil
	}
	if c.Telegram.TokenFile == "" {
		return "", ErrMissingChatToken
	}
	data, err := os.ReadFile(c.Telegram.TokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrMissingChatToken, c.Telegram.TokenFile)
		}
		return "", fmt.Errorf("failed to read token file %s: %w", c.Telegram.TokenFile, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingChatToken, c.Telegram.TokenFile)
	}
	return token, nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values yield info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
