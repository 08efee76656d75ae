package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/twiliowhatsapp"
	"github.com/twilio/twilio-go/client"
)

// TwilioSignatureHeader carries Twilio's HMAC signature of a webhook request.
const TwilioSignatureHeader = "X-Twilio-Signature"

// TwilioServiceOpts holds configuration for the inbound webhook.
type TwilioServiceOpts struct {
	AuthToken  string // signs webhook requests; empty disables signature checks
	WebhookURL string // public URL Twilio posts to; derived from the request when empty
}

// TwilioServiceOption defines a functional option for configuring a TwilioService.
type TwilioServiceOption func(*TwilioServiceOpts)

// WithWebhookAuthToken enables X-Twilio-Signature validation with the account auth token.
func WithWebhookAuthToken(token string) TwilioServiceOption {
	return func(o *TwilioServiceOpts) {
		o.AuthToken = token
	}
}

// WithWebhookURL sets the public webhook URL used when checking signatures,
// for deployments behind a proxy that rewrites the host or scheme.
func WithWebhookURL(url string) TwilioServiceOption {
	return func(o *TwilioServiceOpts) {
		o.WebhookURL = url
	}
}

// TwilioService implements the Service interface using the Twilio API.
// Outbound messages use the REST API; inbound messages arrive through TwilioWebhookHandler.
type TwilioService struct {
	client     twiliowhatsapp.TwilioWhatsAppSender // Could be real Twilio client or MockClient
	validator  *client.RequestValidator            // nil when no auth token is configured
	webhookURL string
	receipts   chan models.Receipt
	responses  chan models.Response
	mu         sync.RWMutex
	stopped    bool
}

// NewTwilioService creates a new TwilioService wrapping the given sender.
func NewTwilioService(sender twiliowhatsapp.TwilioWhatsAppSender, opts ...TwilioServiceOption) *TwilioService {
	var cfg TwilioServiceOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &TwilioService{
		client:     sender,
		webhookURL: cfg.WebhookURL,
		receipts:   make(chan models.Receipt, DefaultChannelBufferSize),
		responses:  make(chan models.Response, DefaultChannelBufferSize),
	}
	if cfg.AuthToken != "" {
		v := client.NewRequestValidator(cfg.AuthToken)
		s.validator = &v
	} else {
		slog.Warn("TwilioService: no auth token, webhook signatures will not be checked")
	}
	return s
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp phone number.
// It removes all non-numeric characters (including a "whatsapp:" prefix) and
// requires at least 6 digits.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizePhone(recipient)
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// Start is a no-op for Twilio; inbound messages are pushed by the webhook.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes channels and stops the service
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.receipts)
	close(s.responses)
	slog.Info("TwilioService stopped and channels closed")
	return nil
}

// SendMessage sends a message via Twilio and emits a receipt
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return ErrServiceStopped
	}

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}

	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		s.safeEmitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusFailed, Time: time.Now().Unix()})
		return err
	}

	s.safeEmitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// Receipts returns the channel for sent message receipts
func (s *TwilioService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Responses returns the channel for incoming messages received by the webhook.
func (s *TwilioService) Responses() <-chan models.Response {
	return s.responses
}

func (s *TwilioService) safeEmitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}

	select {
	case s.receipts <- receipt:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService receipts channel blocked, dropping receipt", "to", receipt.To)
	}
}

// TwilioWebhookHandler handles inbound Twilio webhook requests.
// It parses incoming messages and emits them as models.Response into the Responses() channel.
func (s *TwilioService) TwilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Twilio webhook received")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse Twilio webhook form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if !s.validSignature(r) {
		slog.Warn("Twilio webhook signature rejected", "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	from := r.FormValue("From")
	body := r.FormValue("Body")
	if from == "" || body == "" {
		slog.Warn("Twilio webhook missing fields", "from_set", from != "", "body_set", body != "")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	canonical, err := s.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		slog.Warn("Twilio webhook invalid sender", "error", err, "from", from)
		http.Error(w, "Invalid sender", http.StatusBadRequest)
		return
	}

	slog.Info("Inbound WhatsApp message from Twilio", "from", canonical, "body_length", len(body))
	if !s.safeEmitResponse(models.Response{From: canonical, Body: body, Time: time.Now().Unix()}) {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// validSignature checks X-Twilio-Signature against the posted form. It must run after ParseForm.
func (s *TwilioService) validSignature(r *http.Request) bool {
	if s.validator == nil {
		return true
	}
	sig := r.Header.Get(TwilioSignatureHeader)
	if sig == "" {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return s.validator.Validate(s.requestURL(r), params, sig)
}

// requestURL is the URL Twilio signed: the configured webhook URL, or the one the request arrived on.
func (s *TwilioService) requestURL(r *http.Request) string {
	if s.webhookURL != "" {
		return s.webhookURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// safeEmitResponse pushes a response into the responses channel and reports whether it was queued.
func (s *TwilioService) safeEmitResponse(response models.Response) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		slog.Warn("TwilioService dropping inbound response (service stopped)", "from", response.From)
		return false
	}

	select {
	case s.responses <- response:
		slog.Debug("TwilioService emitted inbound response", "from", response.From)
		return true
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService responses channel blocked, dropping message", "from", response.From)
		return false
	}
}
