// Package flow implements the GoalPipe dialogues and the per-message engine that
// routes chat input into them.
//
// Dialogue transitions are pure functions over models.Conversation. They describe
// the side effects they need (a lookup, a store update) and the Engine performs them.
package flow

import (
	"context"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

// StateManager defines the interface for managing dialogue state.
type StateManager interface {
	// GetConversation retrieves the user's conversation, or nil when there is none
	GetConversation(ctx context.Context, userID string) (*models.Conversation, error)

	// SaveConversation stores the user's conversation, replacing any previous one
	SaveConversation(ctx context.Context, conv *models.Conversation) error

	// ResetState removes the user's conversation and its scratch data
	ResetState(ctx context.Context, userID string) error
}
