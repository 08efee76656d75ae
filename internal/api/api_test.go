package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/messaging"
	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/store"
	"github.com/BTreeMap/GoalPipe/internal/testutil"
	"github.com/BTreeMap/GoalPipe/internal/twiliowhatsapp"
)

// brokenUserStore fails every call.
type brokenUserStore struct{}

var errStoreDown = errors.New("store down")

func (brokenUserStore) GetOrCreate(ctx context.Context, userID string) (*models.UserRecord, error) {
	return nil, errStoreDown
}

func (brokenUserStore) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	return nil, errStoreDown
}

func (brokenUserStore) Update(ctx context.Context, userID string, fn store.UpdateFunc) (*models.UserRecord, error) {
	return nil, errStoreDown
}

func (brokenUserStore) Count(ctx context.Context) (int, error) {
	return 0, errStoreDown
}

func TestHealthHandler(t *testing.T) {
	st := store.NewInMemoryStore()
	for _, id := range []string{"1", "2"} {
		if _, err := st.GetOrCreate(context.Background(), id); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
	}
	s := NewServer(st)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil))

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	body := testutil.AssertJSONResponse(t, rr, "healthy")
	if users, ok := body["users"].(float64); !ok || users != 2 {
		t.Errorf("expected 2 users, got %v", body["users"])
	}
	if ts, ok := body["timestamp"].(string); !ok {
		t.Error("missing timestamp")
	} else if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp is not RFC3339: %q", ts)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	s := NewServer(brokenUserStore{})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil))

	testutil.AssertHTTPStatus(t, http.StatusServiceUnavailable, rr.Code, "degraded health")
	body := testutil.AssertJSONResponse(t, rr, "degraded")
	if _, ok := body["users"]; ok {
		t.Error("degraded response must not report a user count")
	}
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	s := NewServer(store.NewInMemoryStore())

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/health", nil))

	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "POST /health")
	if allow := rr.Header().Get("Allow"); allow != http.MethodGet {
		t.Errorf("unexpected Allow header %q", allow)
	}
}

func TestServerOptions(t *testing.T) {
	s := NewServer(store.NewInMemoryStore())
	if s.Addr() != DefaultAddr {
		t.Errorf("expected default addr, got %q", s.Addr())
	}
	s = NewServer(store.NewInMemoryStore(), WithAddr("127.0.0.1:9090"))
	if s.Addr() != "127.0.0.1:9090" {
		t.Errorf("unexpected addr %q", s.Addr())
	}
	s = NewServer(store.NewInMemoryStore(), WithAddr(""))
	if s.Addr() != DefaultAddr {
		t.Errorf("empty addr should fall back to default, got %q", s.Addr())
	}
}

func twilioWebhookRequest(from, body string) *http.Request {
	form := url.Values{"From": {from}, "Body": {body}}
	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestTwilioWebhookRoute(t *testing.T) {
	svc := messaging.NewTwilioService(twiliowhatsapp.NewMockClient())
	defer svc.Stop()
	s := NewServer(store.NewInMemoryStore(), WithTwilioService(svc))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, twilioWebhookRequest("whatsapp:+15550001234", "/log_water 250"))

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "twilio webhook")
	select {
	case resp := <-svc.Responses():
		if resp.From != "15550001234" || resp.Body != "/log_water 250" {
			t.Errorf("unexpected response: %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("webhook message was not forwarded")
	}
}

func TestTwilioWebhookNotMountedWithoutService(t *testing.T) {
	s := NewServer(store.NewInMemoryStore(), WithTwilioService(nil))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, twilioWebhookRequest("whatsapp:+15550001234", "hi"))

	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "webhook without twilio")
}

func TestServerListenAndShutdown(t *testing.T) {
	s := NewServer(store.NewInMemoryStore(), WithAddr("127.0.0.1:0"))
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected nil after shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}
