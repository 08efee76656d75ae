package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/store"
)

// StoreBasedStateManager implements StateManager using a ConversationStore backend.
type StoreBasedStateManager struct {
	store store.ConversationStore
}

// NewStoreBasedStateManager creates a new StateManager backed by a ConversationStore.
func NewStoreBasedStateManager(st store.ConversationStore) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetConversation retrieves the current conversation for a user. Finished
// conversations are reported as absent.
func (sm *StoreBasedStateManager) GetConversation(ctx context.Context, userID string) (*models.Conversation, error) {
	conv, err := sm.store.GetConversation(ctx, userID)
	if err != nil {
		slog.Error("StateManager GetConversation error", "error", err, "userID", userID)
		return nil, err
	}
	if conv == nil || !conv.Active() {
		slog.Debug("StateManager GetConversation not found", "userID", userID)
		return nil, nil
	}
	slog.Debug("StateManager GetConversation found", "userID", userID, "flow", conv.Flow, "state", conv.State)
	return conv, nil
}

// SaveConversation stores the conversation. Saving a finished conversation removes it.
func (sm *StoreBasedStateManager) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	if conv == nil || conv.UserID == "" {
		return models.ErrEmptyUserID
	}
	if !conv.Active() {
		return sm.ResetState(ctx, conv.UserID)
	}

	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	if conv.Scratch == nil {
		conv.Scratch = make(map[models.DataKey]string)
	}

	if err := sm.store.SaveConversation(ctx, *conv); err != nil {
		slog.Error("StateManager SaveConversation error", "error", err, "userID", conv.UserID, "flow", conv.Flow, "state", conv.State)
		return err
	}
	slog.Debug("StateManager SaveConversation succeeded", "userID", conv.UserID, "flow", conv.Flow, "state", conv.State)
	return nil
}

// ResetState removes the user's conversation.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, userID string) error {
	if err := sm.store.DeleteConversation(ctx, userID); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "userID", userID)
		return err
	}
	slog.Debug("StateManager ResetState succeeded", "userID", userID)
	return nil
}
