package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/telegram"
)

func TestTelegramService_ImplementsService(t *testing.T) {
	var _ Service = (*TelegramService)(nil)
}

func TestTelegramService_ValidateRecipient(t *testing.T) {
	svc := NewTelegramService(telegram.NewMockClient())
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"42", "42", true},
		{" -100123 ", "-100123", true},
		{"", "", false},
		{"@someone", "", false},
	}
	for _, tt := range tests {
		got, err := svc.ValidateAndCanonicalizeRecipient(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ValidateAndCanonicalizeRecipient(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTelegramService_ForwardsUpdates(t *testing.T) {
	mock := telegram.NewMockClient()
	svc := NewTelegramService(mock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	now := time.Unix(1700000000, 0)
	mock.Inbox <- telegram.Incoming{ChatID: 42, UserID: 7, Text: "/start", Time: now}

	select {
	case resp := <-svc.Responses():
		if resp.From != "42" || resp.UserID != "7" || resp.Body != "/start" || resp.Time != now.Unix() {
			t.Errorf("unexpected response: %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a forwarded response")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("expected responses channel closed")
	}
}

func TestTelegramService_SendMessage(t *testing.T) {
	mock := telegram.NewMockClient()
	svc := NewTelegramService(mock)

	if err := svc.SendMessage(context.Background(), "42", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	sent := mock.Messages()
	if len(sent) != 1 || sent[0].ChatID != 42 || sent[0].Body != "hello" {
		t.Errorf("unexpected sent messages: %+v", sent)
	}
	receipt := <-svc.Receipts()
	if receipt.To != "42" || receipt.Status != models.MessageStatusSent {
		t.Errorf("unexpected receipt: %+v", receipt)
	}

	mock.SendErr = errors.New("forbidden: bot was blocked by the user")
	if err := svc.SendMessage(context.Background(), "42", "again"); err == nil {
		t.Error("expected client error to propagate")
	}
	if receipt := <-svc.Receipts(); receipt.Status != models.MessageStatusFailed {
		t.Errorf("expected failed receipt, got %+v", receipt)
	}
	if err := svc.SendMessage(context.Background(), "not-a-chat", "x"); err == nil {
		t.Error("expected validation error")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "42", "late"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}
