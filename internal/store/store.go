// Package store provides storage backends for GoalPipe.
//
// It holds the committed per-user records and the in-progress dialogue state. The
// in-memory store is the default; SQLite and PostgreSQL backends implement the same
// interfaces for deployments that want state to outlive the process.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

// ErrAccumulatorDecreased is returned when an update would lower a daily total.
var ErrAccumulatorDecreased = errors.New("accumulators can only increase")

// ErrAccumulatorNotFinite is returned when an update would overflow a daily total.
var ErrAccumulatorNotFinite = errors.New("accumulators must stay finite")

// UpdateFunc mutates a user record inside an atomic update. Returning an error
// aborts the update and nothing is committed.
type UpdateFunc func(rec *models.UserRecord) error

// UserStore maps user IDs to their committed records.
type UserStore interface {
	// GetOrCreate returns the user's record, creating a default one on first access.
	GetOrCreate(ctx context.Context, userID string) (*models.UserRecord, error)
	// Get returns the user's record or models.ErrUserNotFound.
	Get(ctx context.Context, userID string) (*models.UserRecord, error)
	// Update applies fn to the user's record as one critical section and returns the
	// committed result. The record is created first if it does not exist.
	Update(ctx context.Context, userID string, fn UpdateFunc) (*models.UserRecord, error)
	// Count returns the number of known users.
	Count(ctx context.Context) (int, error)
}

// ConversationStore persists in-progress dialogue state.
type ConversationStore interface {
	SaveConversation(ctx context.Context, conv models.Conversation) error
	// GetConversation returns nil, nil when the user has no conversation.
	GetConversation(ctx context.Context, userID string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, userID string) error
}

// Store is implemented by every backend.
type Store interface {
	UserStore
	ConversationStore
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string // database connection string; empty selects the in-memory store
}

// Option defines a configuration option for store implementations.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithDSN sets a connection string whose backend is detected with DetectDSNType.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

var keywordDSN = regexp.MustCompile(`(^|\s)(host|user|dbname|password|sslmode|port)=`)

// DetectDSNType returns "postgres" for PostgreSQL URLs and keyword/value connection
// strings, and "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return "postgres"
	}
	if keywordDSN.MatchString(d) {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend selected by the DSN option.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		slog.Info("Using in-memory store")
		return NewInMemoryStore(), nil
	}
	switch DetectDSNType(dsn) {
	case "postgres":
		slog.Info("Using PostgreSQL store")
		s, err := NewPostgresStore(WithPostgresDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return s, nil
	default:
		slog.Info("Using SQLite store", "path", dsn)
		s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	}
}

// applyUpdate runs fn on a copy of before and checks the result before it may be
// committed.
func applyUpdate(before *models.UserRecord, fn UpdateFunc) (*models.UserRecord, error) {
	after := before.Clone()
	if err := fn(after); err != nil {
		return nil, err
	}
	for _, v := range []float64{after.LoggedWaterMl, after.LoggedCaloriesKcal, after.BurnedCaloriesKcal} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrAccumulatorNotFinite
		}
	}
	if after.LoggedWaterMl < before.LoggedWaterMl ||
		after.LoggedCaloriesKcal < before.LoggedCaloriesKcal ||
		after.BurnedCaloriesKcal < before.BurnedCaloriesKcal {
		return nil, ErrAccumulatorDecreased
	}
	after.UserID = before.UserID
	after.CreatedAt = before.CreatedAt
	return after, nil
}
