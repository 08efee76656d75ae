package main

import (
	"bytes"
	"flag"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("goalpipe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseCommandLineFlagsKeepsEnvironmentDefaults(t *testing.T) {
	cfg := config.Config{
		Transport: config.TransportTelegram,
		StateDir:  "/var/lib/goalpipe",
		APIAddr:   ":8080",
		LogLevel:  "info",
		Lookup:    config.LookupConfig{Timeout: 10 * time.Second},
	}
	want := cfg

	if err := parseCommandLineFlags(newFlagSet(), nil, &cfg); err != nil {
		t.Fatalf("parseCommandLineFlags failed: %v", err)
	}
	if cfg != want {
		t.Errorf("config changed without flags: %+v", cfg)
	}
}

func TestParseCommandLineFlagsOverrides(t *testing.T) {
	cfg := config.Config{Transport: config.TransportTelegram, StateDir: ".goalpipe", LogLevel: "info"}
	args := []string{
		"-transport", "whatsapp",
		"-state-dir", "/tmp/goalpipe",
		"-db-dsn", "/tmp/goalpipe/users.db",
		"-api-addr", "127.0.0.1:9000",
		"-log-level", "debug",
		"-token-file", "/run/secrets/token",
		"-lookup-timeout", "2s",
		"-qr-output", "/tmp/qr.txt",
		"-numeric-code",
	}

	if err := parseCommandLineFlags(newFlagSet(), args, &cfg); err != nil {
		t.Fatalf("parseCommandLineFlags failed: %v", err)
	}

	if cfg.Transport != config.TransportWhatsApp {
		t.Errorf("transport = %q", cfg.Transport)
	}
	if cfg.StateDir != "/tmp/goalpipe" || cfg.DBDSN != "/tmp/goalpipe/users.db" {
		t.Errorf("unexpected paths: state=%q dsn=%q", cfg.StateDir, cfg.DBDSN)
	}
	if cfg.APIAddr != "127.0.0.1:9000" {
		t.Errorf("api addr = %q", cfg.APIAddr)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Telegram.TokenFile != "/run/secrets/token" {
		t.Errorf("token file = %q", cfg.Telegram.TokenFile)
	}
	if cfg.Lookup.Timeout != 2*time.Second {
		t.Errorf("lookup timeout = %s", cfg.Lookup.Timeout)
	}
	if cfg.WhatsApp.QRPath != "/tmp/qr.txt" || !cfg.WhatsApp.NumericCode {
		t.Errorf("unexpected whatsapp settings: %+v", cfg.WhatsApp)
	}
}

func TestParseCommandLineFlagsRejectsUnknownFlag(t *testing.T) {
	var cfg config.Config
	if err := parseCommandLineFlags(newFlagSet(), []string{"-openai-api-key", "x"}, &cfg); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestInitializeLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	initializeLogger(&buf, slog.LevelWarn)

	slog.Info("hidden message")
	slog.Warn("visible message", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "key=value") {
		t.Errorf("warn message missing: %s", out)
	}
}
