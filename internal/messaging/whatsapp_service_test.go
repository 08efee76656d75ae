package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/whatsapp"
)

// Ensure WhatsAppService implements Service interface
func TestWhatsAppService_ImplementsService(t *testing.T) {
	var _ Service = (*WhatsAppService)(nil)
}

// Test SendMessage canonicalizes the number and emits a sent receipt
func TestWhatsAppService_SendMessage_Receipt(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient)
	ctx := context.Background()
	if err := svc.SendMessage(ctx, "+1 (555) 000-1234", "hello"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if len(mockClient.Sent) != 1 || mockClient.Sent[0].To != "15550001234" {
		t.Errorf("unexpected sent messages: %+v", mockClient.Sent)
	}
	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "15550001234" {
			t.Errorf("expected receipt.To 15550001234, got %s", receipt.To)
		}
		if receipt.Status != models.MessageStatusSent {
			t.Errorf("expected receipt.Status %s, got %s", models.MessageStatusSent, receipt.Status)
		}
	default:
		t.Fatal("expected receipt, got none")
	}
}

func TestWhatsAppService_InvalidRecipient(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	for _, to := range []string{"", "abc", "12345"} {
		if err := svc.SendMessage(context.Background(), to, "hi"); err == nil {
			t.Errorf("expected error for recipient %q", to)
		}
	}
}

// Test Start and Stop do not error and close channels
func TestWhatsAppService_StartStop(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	receipt, ok := <-svc.Receipts()
	if ok {
		t.Errorf("expected receipts channel closed, got value %v", receipt)
	}
	response, ok := <-svc.Responses()
	if ok {
		t.Errorf("expected responses channel closed, got value %v", response)
	}
	if err := svc.SendMessage(context.Background(), "15550001234", "late"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}
