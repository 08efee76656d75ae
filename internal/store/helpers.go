package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

// sqlStore holds the queries shared by the SQLite and PostgreSQL backends. Queries
// are written with "?" placeholders and rebound for drivers that need "$n".
type sqlStore struct {
	db         *sql.DB
	name       string // log prefix
	numbered   bool   // use $1, $2 ... placeholders
	lockForUpd bool   // append FOR UPDATE when reading inside Update
}

const userColumns = `user_id, profile, goals, logged_water_ml, logged_calories_kcal, burned_calories_kcal, pending_food, created_at, updated_at`

// rebind rewrites "?" placeholders as "$n" when the driver needs it.
func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalNullable encodes v as JSON, or returns nil for a nil pointer.
func marshalNullable[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// unmarshalNullable decodes a nullable JSON column.
func unmarshalNullable[T any](col sql.NullString) (*T, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser scans a UserRecord from a single row.
func scanUser(row rowScanner) (*models.UserRecord, error) {
	var rec models.UserRecord
	var profile, goals, pending sql.NullString
	err := row.Scan(
		&rec.UserID, &profile, &goals,
		&rec.LoggedWaterMl, &rec.LoggedCaloriesKcal, &rec.BurnedCaloriesKcal,
		&pending, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.Profile, err = unmarshalNullable[models.Profile](profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if rec.Goals, err = unmarshalNullable[models.Goals](goals); err != nil {
		return nil, fmt.Errorf("decode goals: %w", err)
	}
	if rec.PendingFood, err = unmarshalNullable[models.FoodCandidate](pending); err != nil {
		return nil, fmt.Errorf("decode pending food: %w", err)
	}
	return &rec, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *sqlStore) ensureUser(ctx context.Context, ex execer, userID string) error {
	now := time.Now().UTC()
	_, err := ex.ExecContext(ctx, s.rebind(`INSERT INTO users (user_id, logged_water_ml, logged_calories_kcal, burned_calories_kcal, created_at, updated_at)
		VALUES (?, 0, 0, 0, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`), userID, now, now)
	return err
}

// GetOrCreate implements UserStore.
func (s *sqlStore) GetOrCreate(ctx context.Context, userID string) (*models.UserRecord, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	if err := s.ensureUser(ctx, s.db, userID); err != nil {
		slog.Error(s.name+" GetOrCreate insert failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to create user %s: %w", userID, err)
	}
	return s.Get(ctx, userID)
}

// Get implements UserStore.
func (s *sqlStore) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE user_id = ?`), userID)
	rec, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug(s.name+" Get not found", "userID", userID)
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		slog.Error(s.name+" Get failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return rec, nil
}

// Update implements UserStore. The read-modify-write runs in one transaction.
func (s *sqlStore) Update(ctx context.Context, userID string, fn UpdateFunc) (*models.UserRecord, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error(s.name+" Update begin failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ensureUser(ctx, tx, userID); err != nil {
		slog.Error(s.name+" Update insert failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to create user %s: %w", userID, err)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`
	if s.lockForUpd {
		query += ` FOR UPDATE`
	}
	before, err := scanUser(tx.QueryRowContext(ctx, s.rebind(query), userID))
	if err != nil {
		slog.Error(s.name+" Update select failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	after, err := applyUpdate(before, fn)
	if err != nil {
		return nil, err
	}
	after.UpdatedAt = time.Now().UTC()

	profile, err := marshalNullable(after.Profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	goals, err := marshalNullable(after.Goals)
	if err != nil {
		return nil, fmt.Errorf("encode goals: %w", err)
	}
	pending, err := marshalNullable(after.PendingFood)
	if err != nil {
		return nil, fmt.Errorf("encode pending food: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE users SET
			profile = ?, goals = ?,
			logged_water_ml = ?, logged_calories_kcal = ?, burned_calories_kcal = ?,
			pending_food = ?, updated_at = ?
		WHERE user_id = ?`),
		profile, goals,
		after.LoggedWaterMl, after.LoggedCaloriesKcal, after.BurnedCaloriesKcal,
		pending, after.UpdatedAt, userID)
	if err != nil {
		slog.Error(s.name+" Update write failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		slog.Error(s.name+" Update commit failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to commit update for %s: %w", userID, err)
	}
	slog.Debug(s.name+" Update succeeded", "userID", userID)
	return after, nil
}

// Count implements UserStore.
func (s *sqlStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		slog.Error(s.name+" Count failed", "error", err)
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// SaveConversation implements ConversationStore.
func (s *sqlStore) SaveConversation(ctx context.Context, conv models.Conversation) error {
	if conv.UserID == "" {
		return models.ErrEmptyUserID
	}
	var scratchJSON string
	if len(conv.Scratch) > 0 {
		b, err := json.Marshal(conv.Scratch)
		if err != nil {
			slog.Error(s.name+" SaveConversation JSON marshal failed", "error", err, "userID", conv.UserID)
			return err
		}
		scratchJSON = string(b)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO conversations (user_id, flow, state, scratch, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET
			flow = excluded.flow,
			state = excluded.state,
			scratch = excluded.scratch,
			updated_at = excluded.updated_at`),
		conv.UserID, string(conv.Flow), string(conv.State), nilIfEmpty(scratchJSON),
		conv.CreatedAt.UTC(), conv.UpdatedAt.UTC())
	if err != nil {
		slog.Error(s.name+" SaveConversation failed", "error", err, "userID", conv.UserID, "flow", conv.Flow)
		return fmt.Errorf("failed to save conversation for %s: %w", conv.UserID, err)
	}
	slog.Debug(s.name+" SaveConversation succeeded", "userID", conv.UserID, "flow", conv.Flow, "state", conv.State)
	return nil
}

// GetConversation implements ConversationStore.
func (s *sqlStore) GetConversation(ctx context.Context, userID string) (*models.Conversation, error) {
	var conv models.Conversation
	var flow, state string
	var scratch sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT user_id, flow, state, scratch, created_at, updated_at
		FROM conversations WHERE user_id = ?`), userID).
		Scan(&conv.UserID, &flow, &state, &scratch, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetConversation failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load conversation for %s: %w", userID, err)
	}
	conv.Flow = models.FlowType(flow)
	conv.State = models.StateType(state)
	conv.Scratch = make(map[models.DataKey]string)
	if scratch.Valid && scratch.String != "" {
		if err := json.Unmarshal([]byte(scratch.String), &conv.Scratch); err != nil {
			slog.Error(s.name+" GetConversation JSON unmarshal failed", "error", err, "userID", userID)
			conv.Scratch = make(map[models.DataKey]string)
		}
	}
	return &conv, nil
}

// DeleteConversation implements ConversationStore.
func (s *sqlStore) DeleteConversation(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM conversations WHERE user_id = ?`), userID)
	if err != nil {
		slog.Error(s.name+" DeleteConversation failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete conversation for %s: %w", userID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	slog.Debug("Closing " + s.name + " database connection")
	if err := s.db.Close(); err != nil {
		slog.Error("Failed to close "+s.name+" database", "error", err)
		return err
	}
	return nil
}
