package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/goals"
	"github.com/BTreeMap/GoalPipe/internal/lookup"
	"github.com/BTreeMap/GoalPipe/internal/models"
	"github.com/BTreeMap/GoalPipe/internal/store"
)

// EngineOpts holds configuration for the Engine.
type EngineOpts struct {
	LookupTimeout time.Duration // upper bound for one weather or food lookup
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*EngineOpts)

// WithLookupTimeout bounds each external lookup made while handling a message.
func WithLookupTimeout(d time.Duration) EngineOption {
	return func(o *EngineOpts) {
		if d > 0 {
			o.LookupTimeout = d
		}
	}
}

// Engine is the per-message entry point. It routes a message into an active
// dialogue, a dialogue entry or a single-shot command, and serializes all
// messages of one user.
type Engine struct {
	users   store.UserStore
	states  StateManager
	weather lookup.TemperatureFetcher
	food    lookup.FoodFetcher
	locks   *keyedMutex
	opts    EngineOpts
}

// NewEngine creates an Engine. A nil weather fetcher behaves like a missing API key.
func NewEngine(users store.UserStore, states StateManager, weather lookup.TemperatureFetcher, food lookup.FoodFetcher, opts ...EngineOption) *Engine {
	cfg := EngineOpts{LookupTimeout: lookup.DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating Engine", "lookupTimeout", cfg.LookupTimeout, "weather_set", weather != nil, "food_set", food != nil)
	return &Engine{
		users:   users,
		states:  states,
		weather: weather,
		food:    food,
		locks:   newKeyedMutex(),
		opts:    cfg,
	}
}

// HandleMessage processes one inbound message and returns the reply. Errors are
// infrastructure failures only; dialogue state is left as it was so the user can
// retry.
func (e *Engine) HandleMessage(ctx context.Context, msg models.Message) (models.Reply, error) {
	uid := strings.TrimSpace(msg.UserID)
	if uid == "" {
		return models.Reply{}, models.ErrEmptyUserID
	}

	unlock := e.locks.Lock(uid)
	defer unlock()

	rec, err := e.users.GetOrCreate(ctx, uid)
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to load user %s: %w", uid, err)
	}
	conv, err := e.states.GetConversation(ctx, uid)
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to load conversation for %s: %w", uid, err)
	}

	slog.Debug("Engine.HandleMessage", "userID", uid, "command", msg.Command, "args", len(msg.Args), "inDialogue", conv != nil)

	if !msg.IsCommand() {
		if conv == nil {
			return models.Reply{Text: msgUnknown, Next: models.NextNone}, nil
		}
		return e.continueDialogue(ctx, conv, msg.Text)
	}

	switch strings.ToLower(msg.Command) {
	case CommandStart, CommandHelp:
		return models.Reply{Text: HelpText, Next: idle(conv)}, nil

	case CommandSetProfile:
		if err := e.abandon(ctx, uid, conv); err != nil {
			return models.Reply{}, err
		}
		next, ask := StartProfile(uid)
		if err := e.states.SaveConversation(ctx, &next); err != nil {
			return models.Reply{}, fmt.Errorf("failed to start profile dialogue for %s: %w", uid, err)
		}
		slog.Info("Engine: profile dialogue started", "userID", uid)
		return models.Reply{Text: ask, Next: models.NextContinue}, nil

	case CommandLogFood:
		if !rec.HasProfile() {
			return models.Reply{Text: msgNeedProfile, Next: idle(conv)}, nil
		}
		if err := e.abandon(ctx, uid, conv); err != nil {
			return models.Reply{}, err
		}
		start, _ := StartFood(uid)
		return e.applyFood(ctx, AdvanceFood(start, strings.Join(msg.Args, " ")))

	case CommandCancel:
		if conv == nil {
			return models.Reply{Text: msgNothingToCancel, Next: models.NextNone}, nil
		}
		if err := e.abandon(ctx, uid, conv); err != nil {
			return models.Reply{}, err
		}
		slog.Info("Engine: dialogue cancelled", "userID", uid, "flow", conv.Flow, "state", conv.State)
		return models.Reply{Text: msgCancelled, Next: models.NextEnd}, nil

	case CommandLogWater:
		text, err := e.logWater(ctx, rec, msg.Args)
		if err != nil {
			return models.Reply{}, err
		}
		return models.Reply{Text: text, Next: idle(conv)}, nil

	case CommandLogWorkout:
		text, err := e.logWorkout(ctx, rec, msg.Args)
		if err != nil {
			return models.Reply{}, err
		}
		return models.Reply{Text: text, Next: idle(conv)}, nil

	case CommandCheckProgress:
		if !rec.HasProfile() {
			return models.Reply{Text: msgNeedProfile, Next: idle(conv)}, nil
		}
		return models.Reply{Text: BuildProgress(rec).Text(), Next: idle(conv)}, nil
	}

	return models.Reply{Text: msgUnknown, Next: idle(conv)}, nil
}

// idle is the next-step marker for replies that leave any dialogue untouched.
func idle(conv *models.Conversation) models.NextStep {
	if conv != nil {
		return models.NextContinue
	}
	return models.NextNone
}

func (e *Engine) continueDialogue(ctx context.Context, conv *models.Conversation, input string) (models.Reply, error) {
	switch conv.Flow {
	case models.FlowTypeProfile:
		return e.applyProfile(ctx, AdvanceProfile(*conv, input))
	case models.FlowTypeFood:
		return e.applyFood(ctx, AdvanceFood(*conv, input))
	}
	slog.Warn("Engine: dropping conversation with unknown flow", "userID", conv.UserID, "flow", conv.Flow)
	if err := e.states.ResetState(ctx, conv.UserID); err != nil {
		return models.Reply{}, fmt.Errorf("failed to reset conversation for %s: %w", conv.UserID, err)
	}
	return models.Reply{Text: msgUnknown, Next: models.NextEnd}, nil
}

// abandon ends an active dialogue. A food dialogue also drops its pending food.
func (e *Engine) abandon(ctx context.Context, uid string, conv *models.Conversation) error {
	if conv == nil {
		return nil
	}
	if conv.Flow == models.FlowTypeFood {
		if _, err := e.users.Update(ctx, uid, func(rec *models.UserRecord) error {
			rec.PendingFood = nil
			return nil
		}); err != nil {
			return fmt.Errorf("failed to clear pending food for %s: %w", uid, err)
		}
	}
	if err := e.states.ResetState(ctx, uid); err != nil {
		return fmt.Errorf("failed to reset conversation for %s: %w", uid, err)
	}
	slog.Debug("Engine: dialogue abandoned", "userID", uid, "flow", conv.Flow, "state", conv.State)
	return nil
}

func (e *Engine) applyProfile(ctx context.Context, t ProfileTransition) (models.Reply, error) {
	uid := t.Conversation.UserID
	if t.Draft == nil {
		if err := e.states.SaveConversation(ctx, &t.Conversation); err != nil {
			return models.Reply{}, fmt.Errorf("failed to save profile dialogue for %s: %w", uid, err)
		}
		return models.Reply{Text: t.Reply, Next: models.NextContinue}, nil
	}

	temp := e.fetchTemperature(ctx, uid, t.Draft.Profile.City)
	profile, g := FinalizeProfile(*t.Draft, temp.Value())

	if _, err := e.users.Update(ctx, uid, func(rec *models.UserRecord) error {
		rec.Profile = &profile
		rec.Goals = &g
		return nil
	}); err != nil {
		return models.Reply{}, fmt.Errorf("failed to save profile for %s: %w", uid, err)
	}
	if err := e.states.ResetState(ctx, uid); err != nil {
		slog.Error("Engine: profile saved but dialogue not cleared", "userID", uid, "error", err)
	}

	slog.Info("Engine: profile saved", "userID", uid, "waterMl", g.WaterMl, "calorieKcal", g.CalorieKcal,
		"calorieOverridden", g.CalorieOverridden, "temperatureKnown", temp.Known)
	return models.Reply{Text: profileSavedText(profile, g), Next: models.NextEnd}, nil
}

func (e *Engine) applyFood(ctx context.Context, t FoodTransition) (models.Reply, error) {
	uid := t.Conversation.UserID
	switch {
	case t.Query != "":
		return e.resolveFood(ctx, t.Conversation, t.Query)
	case t.Grams > 0:
		return e.logGrams(ctx, uid, t.Grams)
	}
	if err := e.states.SaveConversation(ctx, &t.Conversation); err != nil {
		return models.Reply{}, fmt.Errorf("failed to save food dialogue for %s: %w", uid, err)
	}
	return models.Reply{Text: t.Reply, Next: models.NextContinue}, nil
}

func (e *Engine) resolveFood(ctx context.Context, conv models.Conversation, query string) (models.Reply, error) {
	uid := conv.UserID
	result := e.fetchFood(ctx, uid, query)
	t := ResolveFoodQuery(conv, result)

	if !result.Found {
		if err := e.states.ResetState(ctx, uid); err != nil {
			return models.Reply{}, fmt.Errorf("failed to reset conversation for %s: %w", uid, err)
		}
		return models.Reply{Text: t.Reply, Next: models.NextEnd}, nil
	}

	candidate := result.Candidate
	if _, err := e.users.Update(ctx, uid, func(rec *models.UserRecord) error {
		rec.PendingFood = &candidate
		return nil
	}); err != nil {
		return models.Reply{}, fmt.Errorf("failed to store pending food for %s: %w", uid, err)
	}
	if err := e.states.SaveConversation(ctx, &t.Conversation); err != nil {
		return models.Reply{}, fmt.Errorf("failed to save food dialogue for %s: %w", uid, err)
	}
	slog.Debug("Engine: pending food set", "userID", uid, "food", candidate.Name, "kcalPer100g", candidate.KcalPer100g)
	return models.Reply{Text: t.Reply, Next: models.NextContinue}, nil
}

func (e *Engine) logGrams(ctx context.Context, uid string, grams float64) (models.Reply, error) {
	var kcal float64
	_, err := e.users.Update(ctx, uid, func(rec *models.UserRecord) error {
		if rec.PendingFood == nil {
			return models.ErrNoPendingFood
		}
		kcal = rec.PendingFood.KcalFor(grams)
		rec.LoggedCaloriesKcal += kcal
		rec.PendingFood = nil
		return nil
	})
	if errors.Is(err, store.ErrAccumulatorNotFinite) {
		return models.Reply{Text: msgGramsInvalid, Next: models.NextContinue}, nil
	}
	if err != nil && !errors.Is(err, models.ErrNoPendingFood) {
		return models.Reply{}, fmt.Errorf("failed to log food for %s: %w", uid, err)
	}
	if rerr := e.states.ResetState(ctx, uid); rerr != nil {
		return models.Reply{}, fmt.Errorf("failed to reset conversation for %s: %w", uid, rerr)
	}
	if err != nil {
		return models.Reply{Text: msgNoPendingFood, Next: models.NextEnd}, nil
	}
	slog.Info("Engine: food logged", "userID", uid, "grams", grams, "kcal", kcal)
	return models.Reply{Text: foodLoggedText(kcal), Next: models.NextEnd}, nil
}

func (e *Engine) logWater(ctx context.Context, rec *models.UserRecord, args []string) (string, error) {
	if !rec.HasProfile() {
		return msgNeedProfile, nil
	}
	if len(args) == 0 {
		return msgWaterUsage, nil
	}
	amount, err := goals.ParseNumber(args[0])
	if err != nil || amount <= 0 {
		return msgWaterInvalid, nil
	}

	updated, err := e.users.Update(ctx, rec.UserID, func(r *models.UserRecord) error {
		r.LoggedWaterMl += amount
		return nil
	})
	if errors.Is(err, store.ErrAccumulatorNotFinite) {
		return msgWaterInvalid, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to log water for %s: %w", rec.UserID, err)
	}
	slog.Info("Engine: water logged", "userID", rec.UserID, "ml", amount, "total", updated.LoggedWaterMl)
	return waterLoggedText(amount, goals.Remaining(waterGoal(updated), updated.LoggedWaterMl)), nil
}

func (e *Engine) logWorkout(ctx context.Context, rec *models.UserRecord, args []string) (string, error) {
	if !rec.HasProfile() {
		return msgNeedProfile, nil
	}
	if len(args) < 2 {
		return msgWorkoutUsage, nil
	}
	kind := args[0]
	minutes, err := goals.ParseNumber(args[1])
	if err != nil || minutes <= 0 {
		return msgWorkoutInvalid, nil
	}

	burned := goals.WorkoutBurn(kind, minutes, rec.Profile.WeightKg)
	_, err = e.users.Update(ctx, rec.UserID, func(r *models.UserRecord) error {
		r.BurnedCaloriesKcal += burned
		return nil
	})
	if errors.Is(err, store.ErrAccumulatorNotFinite) {
		return msgWorkoutInvalid, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to log workout for %s: %w", rec.UserID, err)
	}
	slog.Info("Engine: workout logged", "userID", rec.UserID, "type", kind, "minutes", minutes, "kcal", burned)
	return workoutLoggedText(kind, minutes, burned, goals.ExtraHydrationForWorkout(minutes)), nil
}

// BuildProgress computes the progress figures for a user with a profile.
func BuildProgress(rec *models.UserRecord) ProgressReport {
	var calorieGoal float64
	if rec.Goals != nil {
		calorieGoal = rec.Goals.CalorieKcal
	}
	net := goals.NetCalories(rec.LoggedCaloriesKcal, rec.BurnedCaloriesKcal)
	return ProgressReport{
		WaterLogged:       rec.LoggedWaterMl,
		WaterGoal:         waterGoal(rec),
		WaterRemaining:    goals.Remaining(waterGoal(rec), rec.LoggedWaterMl),
		CaloriesConsumed:  rec.LoggedCaloriesKcal,
		CalorieGoal:       calorieGoal,
		CaloriesBurned:    rec.BurnedCaloriesKcal,
		NetCalories:       net,
		CaloriesRemaining: goals.Remaining(calorieGoal, net),
	}
}

func waterGoal(rec *models.UserRecord) float64 {
	if rec == nil || rec.Goals == nil {
		return 0
	}
	return rec.Goals.WaterMl
}

func (e *Engine) fetchTemperature(ctx context.Context, uid, city string) lookup.Temperature {
	if e.weather == nil {
		return lookup.UnknownTemperature(lookup.ReasonMissingCredential)
	}
	lctx, cancel := context.WithTimeout(ctx, e.opts.LookupTimeout)
	defer cancel()
	t := e.weather.FetchTemperature(lctx, city)
	if !t.Known {
		slog.Warn("Engine: temperature unavailable, no heat bonus applied", "userID", uid, "city", city, "reason", t.Reason)
	}
	return t
}

func (e *Engine) fetchFood(ctx context.Context, uid, query string) lookup.FoodResult {
	if e.food == nil {
		return lookup.FoodNotFound(lookup.ReasonMissingCredential)
	}
	lctx, cancel := context.WithTimeout(ctx, e.opts.LookupTimeout)
	defer cancel()
	r := e.food.FetchFoodEnergy(lctx, query)
	if !r.Found {
		slog.Warn("Engine: food lookup failed", "userID", uid, "query", query, "reason", r.Reason)
	}
	return r
}
