package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BTreeMap/GoalPipe/internal/config"
	"github.com/BTreeMap/GoalPipe/internal/flow"
	"github.com/BTreeMap/GoalPipe/internal/lockfile"
	"github.com/BTreeMap/GoalPipe/internal/lookup"
	"github.com/BTreeMap/GoalPipe/internal/messaging"
	"github.com/BTreeMap/GoalPipe/internal/store"
	"github.com/BTreeMap/GoalPipe/internal/telegram"
	"github.com/BTreeMap/GoalPipe/internal/twiliowhatsapp"
	"github.com/BTreeMap/GoalPipe/internal/whatsapp"
)

// Run starts GoalPipe and blocks until ctx is cancelled, SIGINT or SIGTERM
// arrives, or the HTTP server fails.
func Run(ctx context.Context, cfg config.Config) (err error) {
	slog.Info("Run: starting GoalPipe", "transport", cfg.Transport, "state_dir", cfg.StateDir)

	lock, err := lockfile.AcquireLock(cfg.StateDir)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			slog.Warn("Run: failed to release lock", "error", relErr)
		}
	}()

	st, err := store.New(store.WithDSN(cfg.DBDSN))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("Run: failed to close store", "error", closeErr)
		}
	}()

	engine := newEngine(st, cfg.Lookup)

	svc, twilioSvc, err := newMessagingService(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		_ = svc.Stop()
		return fmt.Errorf("failed to start messaging service: %w", err)
	}

	router := messaging.NewRouter(svc, engine, messaging.WithMailboxSize(cfg.MailboxSize))
	router.Start(ctx)

	server := NewServer(st, WithAddr(cfg.APIAddr), WithTwilioService(twilioSvc))
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Run: shutdown requested")
	case err = <-serverErr:
		slog.Error("Run: API server stopped unexpectedly", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if shutErr := server.Shutdown(shutdownCtx); shutErr != nil && !errors.Is(shutErr, context.Canceled) {
		slog.Warn("Run: API server shutdown failed", "error", shutErr)
	}
	router.Wait()
	if stopErr := svc.Stop(); stopErr != nil {
		slog.Warn("Run: failed to stop messaging service", "error", stopErr)
	}
	slog.Info("Run: GoalPipe stopped")
	return err
}

func newEngine(st store.Store, cfg config.LookupConfig) *flow.Engine {
	weather := lookup.NewWeatherClient(
		lookup.WithAPIKey(cfg.WeatherAPIKey),
		lookup.WithBaseURL(cfg.WeatherBaseURL),
		lookup.WithTimeout(cfg.Timeout),
		lookup.WithUserAgent(cfg.UserAgent),
	)
	if !weather.HasCredential() {
		slog.Warn("Run: OPENWEATHER_API_KEY not set, water goals will omit the heat bonus")
	}
	food := lookup.NewFoodClient(
		lookup.WithBaseURL(cfg.FoodBaseURL),
		lookup.WithTimeout(cfg.Timeout),
		lookup.WithUserAgent(cfg.UserAgent),
	)
	return flow.NewEngine(st, flow.NewStoreBasedStateManager(st), weather, food, flow.WithLookupTimeout(cfg.Timeout))
}

// newMessagingService builds the transport selected by cfg.Transport. The
// Twilio service is also returned on its own so its webhook can be mounted.
func newMessagingService(cfg config.Config) (messaging.Service, *messaging.TwilioService, error) {
	switch cfg.Transport {
	case config.TransportTelegram:
		token, err := cfg.ResolveTelegramToken()
		if err != nil {
			return nil, nil, err
		}
		client, err := telegram.NewClient(token,
			telegram.WithAPIEndpoint(cfg.Telegram.APIEndpoint),
			telegram.WithDebug(cfg.Telegram.Debug),
		)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Run: using Telegram transport", "bot", client.Username())
		return messaging.NewTelegramService(client), nil, nil

	case config.TransportWhatsApp:
		opts := []whatsapp.Option{whatsapp.WithDBDSN(cfg.WhatsApp.DBDSN)}
		if cfg.WhatsApp.QRPath != "" {
			opts = append(opts, whatsapp.WithQRCodeOutput(cfg.WhatsApp.QRPath))
		}
		if cfg.WhatsApp.NumericCode {
			opts = append(opts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(opts...)
		if err != nil {
			return nil, nil, err
		}
		return messaging.NewWhatsAppService(client), nil, nil

	case config.TransportTwilioWhatsApp:
		client, err := twiliowhatsapp.NewClient(
			twiliowhatsapp.WithAccountSID(cfg.Twilio.AccountSID),
			twiliowhatsapp.WithAuthToken(cfg.Twilio.AuthToken),
			twiliowhatsapp.WithFromWhats(cfg.Twilio.FromNumber),
		)
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewTwilioService(client,
			messaging.WithWebhookAuthToken(cfg.Twilio.AuthToken),
			messaging.WithWebhookURL(cfg.Twilio.WebhookURL),
		)
		return svc, svc, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownTransport, cfg.Transport)
	}
}
