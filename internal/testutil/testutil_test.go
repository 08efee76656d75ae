package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/lookup"
	"github.com/BTreeMap/GoalPipe/internal/models"
)

func TestFakeWeather(t *testing.T) {
	w := NewFakeWeather().Set("Cairo", 33)

	got := w.FetchTemperature(context.Background(), " cairo ")
	if !got.Known || got.Celsius != 33 {
		t.Errorf("expected 33°C for Cairo, got %+v", got)
	}
	got = w.FetchTemperature(context.Background(), "Atlantis")
	if got.Known || got.Reason != lookup.ReasonMissingCredential {
		t.Errorf("expected unknown temperature, got %+v", got)
	}
	if w.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", w.CallCount())
	}
}

func TestFakeFood(t *testing.T) {
	f := NewFakeFood().Set("banana", "Banana", 89)

	got := f.FetchFoodEnergy(context.Background(), "Banana")
	if !got.Found || got.Candidate.Name != "Banana" || got.Candidate.KcalPer100g != 89 {
		t.Errorf("unexpected result: %+v", got)
	}
	got = f.FetchFoodEnergy(context.Background(), "unobtainium")
	if got.Found || got.Reason != lookup.ReasonNotFound {
		t.Errorf("expected not found, got %+v", got)
	}
	if f.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", f.CallCount())
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/twilio/webhook", map[string]string{"a": "b"})
	if req.Method != http.MethodPost || req.URL.Path != "/twilio/webhook" {
		t.Errorf("unexpected request: %s %s", req.Method, req.URL.Path)
	}
	if req.ContentLength == 0 {
		t.Error("expected a request body")
	}
}

func TestAssertJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.WriteString(`{"status":"ok","result":{"users":2}}`)

	resp := AssertJSONResponse(t, rr, "ok")
	if _, ok := resp["result"]; !ok {
		t.Error("expected result field")
	}
	AssertHTTPStatus(t, http.StatusOK, rr.Code, "recorder default")
}

func TestRecordingService(t *testing.T) {
	svc := NewRecordingService()
	if _, err := svc.ValidateAndCanonicalizeRecipient(" "); err == nil {
		t.Error("expected error for blank recipient")
	}
	if err := svc.SendMessage(context.Background(), "42", "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	sent := svc.WaitForSent(t, 1, time.Second)
	if sent[0].To != "42" || sent[0].Body != "hi" {
		t.Errorf("unexpected sent message: %+v", sent[0])
	}

	svc.Deliver(models.Response{From: "42", Body: "/start"})
	if got := <-svc.Responses(); got.Body != "/start" {
		t.Errorf("unexpected response: %+v", got)
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("expected responses channel closed")
	}
}
