package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/telegram"
)

// TelegramService implements Service on top of a Telegram bot.
// Recipients are chat IDs in decimal form.
type TelegramService struct {
	client    telegram.TelegramClient
	receipts  chan models.Receipt
	responses chan models.Response
	done      chan struct{}
	mu        sync.RWMutex
	stopped   bool
	wg        sync.WaitGroup
}

// NewTelegramService creates a new TelegramService wrapping the given client.
func NewTelegramService(client telegram.TelegramClient) *TelegramService {
	return &TelegramService{
		client:    client,
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
		done:      make(chan struct{}),
	}
}

// ValidateAndCanonicalizeRecipient checks that recipient is a numeric chat ID.
func (s *TelegramService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	id, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid telegram chat id %q: %w", recipient, err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Start begins forwarding incoming Telegram messages to Responses.
func (s *TelegramService) Start(ctx context.Context) error {
	slog.Debug("TelegramService Start invoked")
	updates := s.client.Updates(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case in, ok := <-updates:
				if !ok {
					slog.Debug("TelegramService updates channel closed")
					return
				}
				s.emitResponse(models.Response{
					From:   strconv.FormatInt(in.ChatID, 10),
					UserID: strconv.FormatInt(in.UserID, 10),
					Body:   in.Text,
					Time:   in.Time.Unix(),
				})
			case <-s.done:
				return
			case <-ctx.Done():
				slog.Debug("TelegramService stopping due to context cancellation")
				return
			}
		}
	}()
	return nil
}

// Stop stops background processing and closes the event channels.
func (s *TelegramService) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	s.mu.Lock()
	close(s.receipts)
	close(s.responses)
	s.mu.Unlock()
	slog.Info("TelegramService stopped and channels closed")
	return nil
}

// SendMessage sends a message to a chat and emits a sent receipt.
func (s *TelegramService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return ErrServiceStopped
	}

	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TelegramService SendMessage validation error", "error", err, "to", to)
		return err
	}
	chatID, _ := strconv.ParseInt(canonical, 10, 64)

	if err := s.client.SendMessage(ctx, chatID, body); err != nil {
		slog.Error("TelegramService SendMessage error", "error", err, "to", canonical)
		s.emitReceipt(models.Receipt{To: canonical, Status: models.MessageStatusFailed, Time: time.Now().Unix()})
		return err
	}
	s.emitReceipt(models.Receipt{To: canonical, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// Receipts returns a channel of receipt events.
func (s *TelegramService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Responses returns a channel of incoming messages.
func (s *TelegramService) Responses() <-chan models.Response {
	return s.responses
}

func (s *TelegramService) emitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}
	select {
	case s.receipts <- receipt:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TelegramService receipts channel blocked, dropping receipt", "to", receipt.To)
	}
}

func (s *TelegramService) emitResponse(response models.Response) {
	select {
	case s.responses <- response:
		slog.Debug("TelegramService incoming message forwarded", "from", response.From)
	case <-s.done:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TelegramService responses channel blocked, dropping message", "from", response.From, "timeout", DefaultChannelTimeout)
	}
}
