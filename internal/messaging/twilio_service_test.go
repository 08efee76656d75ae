package messaging

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/twiliowhatsapp"
)

func TestTwilioService_ImplementsService(t *testing.T) {
	var _ Service = (*TwilioService)(nil)
}

func TestTwilioService_SendMessage(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)

	if err := svc.SendMessage(context.Background(), "whatsapp:+15550001234", "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	sent := mock.Messages()
	if len(sent) != 1 || sent[0].To != "15550001234" {
		t.Errorf("unexpected sent messages: %+v", sent)
	}
	if receipt := <-svc.Receipts(); receipt.To != "15550001234" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}

	mock.SendErr = errors.New("rate limited")
	if err := svc.SendMessage(context.Background(), "whatsapp:+15550001234", "again"); err == nil {
		t.Error("expected client error to propagate")
	}
	if receipt := <-svc.Receipts(); receipt.Status != models.MessageStatusFailed {
		t.Errorf("expected failed receipt, got %+v", receipt)
	}
}

func webhookRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestTwilioWebhookHandler(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	rr := httptest.NewRecorder()
	svc.TwilioWebhookHandler(rr, webhookRequest(url.Values{"From": {"whatsapp:+15550001234"}, "Body": {"/start"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := <-svc.Responses()
	if resp.From != "15550001234" || resp.Body != "/start" {
		t.Errorf("unexpected response: %+v", resp)
	}

	tests := []struct {
		name string
		form url.Values
	}{
		{"missing body", url.Values{"From": {"whatsapp:+15550001234"}}},
		{"missing from", url.Values{"Body": {"hi"}}},
		{"bad sender", url.Values{"From": {"whatsapp:+1"}, "Body": {"hi"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			svc.TwilioWebhookHandler(rr, webhookRequest(tt.form))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}

	rr = httptest.NewRecorder()
	svc.TwilioWebhookHandler(rr, httptest.NewRequest(http.MethodGet, "/twilio/webhook", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rr.Code)
	}
}

// signWebhook computes X-Twilio-Signature for a form posted to fullURL.
func signWebhook(token, fullURL string, form url.Values) string {
	pairs := make([]string, 0, len(form))
	for key := range form {
		pairs = append(pairs, key+form.Get(key))
	}
	sort.Strings(pairs)
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(fullURL + strings.Join(pairs, "")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestTwilioWebhookHandler_Signature(t *testing.T) {
	const token = "auth-token"
	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"/log_water 5000"}}
	good := signWebhook(token, "http://example.com/twilio/webhook", form)

	tests := []struct {
		name      string
		opts      []TwilioServiceOption
		signature string
		want      int
	}{
		{"valid signature", []TwilioServiceOption{WithWebhookAuthToken(token)}, good, http.StatusOK},
		{"missing signature", []TwilioServiceOption{WithWebhookAuthToken(token)}, "", http.StatusForbidden},
		{"forged signature", []TwilioServiceOption{WithWebhookAuthToken(token)}, signWebhook("other", "http://example.com/twilio/webhook", form), http.StatusForbidden},
		{"wrong public url", []TwilioServiceOption{WithWebhookAuthToken(token), WithWebhookURL("https://bot.example.org/twilio/webhook")}, good, http.StatusForbidden},
		{"configured public url", []TwilioServiceOption{WithWebhookAuthToken(token), WithWebhookURL("https://bot.example.org/twilio/webhook")}, signWebhook(token, "https://bot.example.org/twilio/webhook", form), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTwilioService(twiliowhatsapp.NewMockClient(), tt.opts...)
			req := webhookRequest(form)
			if tt.signature != "" {
				req.Header.Set(TwilioSignatureHeader, tt.signature)
			}

			rr := httptest.NewRecorder()
			svc.TwilioWebhookHandler(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if tt.want != http.StatusOK {
				select {
				case resp := <-svc.Responses():
					t.Errorf("rejected request still emitted %+v", resp)
				default:
				}
				return
			}
			if resp := <-svc.Responses(); resp.From != "15551234567" {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestTwilioService_Stop(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "15550001234", "x"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}

	rr := httptest.NewRecorder()
	svc.TwilioWebhookHandler(rr, webhookRequest(url.Values{"From": {"15550001234"}, "Body": {"hi"}}))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after stop, got %d", rr.Code)
	}
}
