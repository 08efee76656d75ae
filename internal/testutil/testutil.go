// Package testutil provides common test utilities and helpers for GoalPipe tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/lookup"
	"github.com/BTreeMap/GoalPipe/internal/models"
)

// FakeWeather is a TemperatureFetcher with canned answers per city.
// Cities not in Temps are unknown with Reason.
type FakeWeather struct {
	mu     sync.Mutex
	Temps  map[string]float64
	Reason lookup.FailureReason
	Calls  []string
}

// NewFakeWeather creates a FakeWeather that knows no cities.
func NewFakeWeather() *FakeWeather {
	return &FakeWeather{Temps: make(map[string]float64), Reason: lookup.ReasonMissingCredential}
}

// Set registers a temperature for a city.
func (f *FakeWeather) Set(city string, celsius float64) *FakeWeather {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Temps[strings.ToLower(city)] = celsius
	return f
}

// FetchTemperature implements lookup.TemperatureFetcher.
func (f *FakeWeather) FetchTemperature(ctx context.Context, city string) lookup.Temperature {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, city)
	if c, ok := f.Temps[strings.ToLower(strings.TrimSpace(city))]; ok {
		return lookup.KnownTemperature(c)
	}
	return lookup.UnknownTemperature(f.Reason)
}

// CallCount returns how many lookups were made.
func (f *FakeWeather) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeFood is a FoodFetcher with canned answers per query.
type FakeFood struct {
	mu    sync.Mutex
	Foods map[string]lookup.FoodResult
	Calls []string
}

// NewFakeFood creates a FakeFood that finds nothing.
func NewFakeFood() *FakeFood {
	return &FakeFood{Foods: make(map[string]lookup.FoodResult)}
}

// Set registers a food by query.
func (f *FakeFood) Set(query, name string, kcalPer100g float64) *FakeFood {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Foods[strings.ToLower(query)] = lookup.FoundFood(name, kcalPer100g)
	return f
}

// FetchFoodEnergy implements lookup.FoodFetcher.
func (f *FakeFood) FetchFoodEnergy(ctx context.Context, query string) lookup.FoodResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, query)
	if r, ok := f.Foods[strings.ToLower(strings.TrimSpace(query))]; ok {
		return r
	}
	return lookup.FoodNotFound(lookup.ReasonNotFound)
}

// CallCount returns how many lookups were made.
func (f *FakeFood) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// SentMessage is one outbound message recorded by RecordingService.
type SentMessage struct {
	To   string
	Body string
}

// RecordingService is an in-memory messaging service. Tests push inbound
// messages with Deliver and inspect replies with Sent.
type RecordingService struct {
	mu        sync.Mutex
	sent      []SentMessage
	stopped   bool
	SendErr   error
	responses chan models.Response
	receipts  chan models.Receipt
}

// NewRecordingService creates a RecordingService with buffered channels.
func NewRecordingService() *RecordingService {
	return &RecordingService{
		responses: make(chan models.Response, 100),
		receipts:  make(chan models.Receipt, 100),
	}
}

// ValidateAndCanonicalizeRecipient trims the recipient and rejects empty values.
func (r *RecordingService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	return recipient, nil
}

// SendMessage records the message, or returns SendErr when set.
func (r *RecordingService) SendMessage(ctx context.Context, to string, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return r.SendErr
	}
	r.sent = append(r.sent, SentMessage{To: to, Body: body})
	return nil
}

// Start is a no-op.
func (r *RecordingService) Start(ctx context.Context) error { return nil }

// Stop closes the event channels.
func (r *RecordingService) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.stopped = true
		close(r.responses)
		close(r.receipts)
	}
	return nil
}

// Receipts returns the receipt channel.
func (r *RecordingService) Receipts() <-chan models.Receipt { return r.receipts }

// Responses returns the inbound message channel.
func (r *RecordingService) Responses() <-chan models.Response { return r.responses }

// Deliver simulates an inbound message.
func (r *RecordingService) Deliver(resp models.Response) {
	r.responses <- resp
}

// Sent returns a copy of the recorded messages.
func (r *RecordingService) Sent() []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SentMessage, len(r.sent))
	copy(out, r.sent)
	return out
}

// WaitForSent polls until at least n messages were sent or the timeout passes.
func (r *RecordingService) WaitForSent(t *testing.T, n int, timeout time.Duration) []SentMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		sent := r.Sent()
		if len(sent) >= n {
			return sent
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d messages, got %d", n, len(sent))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}
