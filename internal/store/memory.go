package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

type userEntry struct {
	mu  sync.Mutex
	rec *models.UserRecord
}

// InMemoryStore keeps all state in process memory. Each user record has its own
// lock, so updates for different users never wait on each other.
type InMemoryStore struct {
	mu            sync.Mutex
	users         map[string]*userEntry
	conversations map[string]models.Conversation
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:         make(map[string]*userEntry),
		conversations: make(map[string]models.Conversation),
	}
}

func (s *InMemoryStore) entry(userID string, create bool) *userEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[userID]
	if !ok && create {
		e = &userEntry{rec: models.NewUserRecord(userID)}
		s.users[userID] = e
		slog.Debug("InMemoryStore: created user record", "userID", userID)
	}
	return e
}

// GetOrCreate implements UserStore.
func (s *InMemoryStore) GetOrCreate(ctx context.Context, userID string) (*models.UserRecord, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	e := s.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

// Get implements UserStore.
func (s *InMemoryStore) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	e := s.entry(userID, false)
	if e == nil {
		return nil, models.ErrUserNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

// Update implements UserStore.
func (s *InMemoryStore) Update(ctx context.Context, userID string, fn UpdateFunc) (*models.UserRecord, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	e := s.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	after, err := applyUpdate(e.rec, fn)
	if err != nil {
		slog.Debug("InMemoryStore.Update: update rejected", "userID", userID, "error", err)
		return nil, err
	}
	after.UpdatedAt = time.Now()
	e.rec = after
	return after.Clone(), nil
}

// Count implements UserStore.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

// SaveConversation implements ConversationStore.
func (s *InMemoryStore) SaveConversation(ctx context.Context, conv models.Conversation) error {
	if conv.UserID == "" {
		return models.ErrEmptyUserID
	}
	c := conv.Clone()
	s.mu.Lock()
	s.conversations[conv.UserID] = *c
	s.mu.Unlock()
	return nil
}

// GetConversation implements ConversationStore.
func (s *InMemoryStore) GetConversation(ctx context.Context, userID string) (*models.Conversation, error) {
	s.mu.Lock()
	c, ok := s.conversations[userID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

// DeleteConversation implements ConversationStore.
func (s *InMemoryStore) DeleteConversation(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.conversations, userID)
	s.mu.Unlock()
	return nil
}

// Close implements Store. It is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
