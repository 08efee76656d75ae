// Package api runs the GoalPipe process: it wires storage, lookups, the
// conversation engine and the chat transport together, and serves the HTTP
// endpoints used for health checks and inbound webhooks.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/messaging"
	"github.com/BTreeMap/GoalPipe/internal/store"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Opts holds configuration options for the HTTP server.
type Opts struct {
	Addr   string                   // listen address
	Twilio *messaging.TwilioService // when set, /twilio/webhook is served
}

// Option defines a configuration option for the HTTP server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithTwilioService enables the Twilio inbound webhook.
func WithTwilioService(svc *messaging.TwilioService) Option {
	return func(o *Opts) {
		o.Twilio = svc
	}
}

// Server serves the GoalPipe HTTP endpoints.
type Server struct {
	users      store.UserStore
	twilio     *messaging.TwilioService
	httpServer *http.Server
}

// NewServer creates a Server backed by the given user store.
func NewServer(users store.UserStore, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{users: users, twilio: cfg.Twilio}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routing handler for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	if s.twilio != nil {
		mux.HandleFunc("/twilio/webhook", s.twilio.TwilioWebhookHandler)
	}
	return mux
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	slog.Info("Server.ListenAndServe: API server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server.ListenAndServe: server failed", "error", err)
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Server.Shutdown: stopping API server")
	return s.httpServer.Shutdown(ctx)
}
