package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/BTreeMap/GoalPipe/internal/api"
	"github.com/BTreeMap/GoalPipe/internal/config"
)

func main() {
	initializeLogger(os.Stdout, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], &cfg); err != nil {
		os.Exit(2)
	}
	initializeLogger(os.Stdout, cfg.SlogLevel())

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Debug("Final configuration",
		"transport", cfg.Transport,
		"state_dir", cfg.StateDir,
		"dsn_set", cfg.DBDSN != "",
		"api_addr", cfg.APIAddr,
		"weather_key_set", cfg.Lookup.WeatherAPIKey != "",
		"lookup_timeout", cfg.Lookup.Timeout)

	if err := api.Run(context.Background(), cfg); err != nil {
		slog.Error("GoalPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("GoalPipe exited successfully")
}

// initializeLogger installs a text logger at the given level as the slog default.
func initializeLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// parseCommandLineFlags overrides cfg with any flags present in args. Values
// loaded from the environment act as the flag defaults.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, cfg *config.Config) error {
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "chat transport: telegram, whatsapp or twilio (overrides $GOALPIPE_TRANSPORT)")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for the lock file and local databases (overrides $GOALPIPE_STATE_DIR)")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "user store DSN, SQLite path or PostgreSQL URL; empty keeps state in memory (overrides $GOALPIPE_DB_DSN)")
	fs.StringVar(&cfg.APIAddr, "api-addr", cfg.APIAddr, "HTTP server address (overrides $API_ADDR)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error (overrides $GOALPIPE_LOG_LEVEL)")
	fs.StringVar(&cfg.Telegram.TokenFile, "token-file", cfg.Telegram.TokenFile, "file holding the Telegram bot token (overrides $TELEGRAM_BOT_TOKEN_FILE)")
	fs.DurationVar(&cfg.Lookup.Timeout, "lookup-timeout", cfg.Lookup.Timeout, "timeout for one weather or food lookup (overrides $LOOKUP_TIMEOUT)")
	fs.StringVar(&cfg.WhatsApp.QRPath, "qr-output", cfg.WhatsApp.QRPath, "path to write the WhatsApp login QR code")
	fs.BoolVar(&cfg.WhatsApp.NumericCode, "numeric-code", cfg.WhatsApp.NumericCode, "use a numeric WhatsApp login code instead of a QR code")

	if err := fs.Parse(args); err != nil {
		return err
	}

	slog.Debug("flags parsed",
		"transport", cfg.Transport,
		"stateDir", cfg.StateDir,
		"dbDSN_set", cfg.DBDSN != "",
		"apiAddr", cfg.APIAddr,
		"logLevel", cfg.LogLevel,
		"lookupTimeout", cfg.Lookup.Timeout)
	return nil
}
