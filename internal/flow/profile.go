package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/GoalPipe/internal/goals"
	"github.com/BTreeMap/GoalPipe/internal/models"
)

// ProfileDraft is the validated output of the profile dialogue, ready to be turned
// into goals. CalorieOverride is 0 when the goal should be computed.
type ProfileDraft struct {
	Profile         models.Profile
	CalorieOverride float64
}

// ProfileTransition is the result of feeding one input into the profile dialogue.
// Draft is set only when the last step accepted its input; the caller must then
// finalize the profile and end the conversation.
type ProfileTransition struct {
	Conversation models.Conversation
	Reply        string
	Draft        *ProfileDraft
}

// numericStep describes one numeric profile question.
type numericStep struct {
	key       models.DataKey
	next      models.StateType
	nextAsk   string
	invalid   string
	allowZero bool
}

var profileSteps = map[models.StateType]numericStep{
	models.StateAwaitingWeight:   {key: models.DataKeyWeight, next: models.StateAwaitingHeight, nextAsk: msgAskHeight, invalid: msgBadWeight},
	models.StateAwaitingHeight:   {key: models.DataKeyHeight, next: models.StateAwaitingAge, nextAsk: msgAskAge, invalid: msgBadHeight},
	models.StateAwaitingAge:      {key: models.DataKeyAge, next: models.StateAwaitingActivity, nextAsk: msgAskActivity, invalid: msgBadAge},
	models.StateAwaitingActivity: {key: models.DataKeyActivity, next: models.StateAwaitingCity, nextAsk: msgAskCity, invalid: msgBadActivity, allowZero: true},
}

// StartProfile returns a fresh profile conversation and its first prompt.
func StartProfile(userID string) (models.Conversation, string) {
	return models.Conversation{
		UserID:  userID,
		Flow:    models.FlowTypeProfile,
		State:   models.StateAwaitingWeight,
		Scratch: make(map[models.DataKey]string),
	}, msgAskWeight
}

// AdvanceProfile applies one reply to the profile dialogue. Invalid input keeps the
// state and scratch unchanged and re-prompts.
func AdvanceProfile(conv models.Conversation, input string) ProfileTransition {
	next := conv.Clone()

	if step, ok := profileSteps[conv.State]; ok {
		v, err := goals.ParseNumber(input)
		if err != nil || v < 0 || (v == 0 && !step.allowZero) {
			return ProfileTransition{Conversation: *conv.Clone(), Reply: step.invalid}
		}
		next.Scratch[step.key] = formatScratch(v)
		next.State = step.next
		return ProfileTransition{Conversation: *next, Reply: step.nextAsk}
	}

	switch conv.State {
	case models.StateAwaitingCity:
		city := strings.TrimSpace(input)
		if city == "" {
			return ProfileTransition{Conversation: *conv.Clone(), Reply: msgBadCity}
		}
		next.Scratch[models.DataKeyCity] = city
		next.State = models.StateAwaitingCalorieGoalOverride
		return ProfileTransition{Conversation: *next, Reply: msgAskOverride}

	case models.StateAwaitingCalorieGoalOverride:
		override, err := goals.ParseNumber(input)
		if err != nil || override < 0 {
			return ProfileTransition{Conversation: *conv.Clone(), Reply: msgBadOverride}
		}
		profile, err := profileFromScratch(conv.Scratch)
		if err != nil {
			restart, _ := StartProfile(conv.UserID)
			return ProfileTransition{Conversation: restart, Reply: msgLostProfile}
		}
		next.State = models.StateDone
		return ProfileTransition{
			Conversation: *next,
			Draft:        &ProfileDraft{Profile: profile, CalorieOverride: override},
		}
	}

	// Unknown state: start over rather than guess.
	restart, _ := StartProfile(conv.UserID)
	return ProfileTransition{Conversation: restart, Reply: msgLostProfile}
}

// FinalizeProfile derives goals for a completed draft. A nil temperature means the
// weather was unavailable.
func FinalizeProfile(d ProfileDraft, temperatureC *float64) (models.Profile, models.Goals) {
	p := d.Profile
	g := models.Goals{
		WaterMl:      goals.WaterGoal(p.WeightKg, p.ActivityMinutes, temperatureC),
		TemperatureC: temperatureC,
	}
	if d.CalorieOverride > 0 {
		g.CalorieKcal = d.CalorieOverride
		g.CalorieOverridden = true
	} else {
		g.CalorieKcal = goals.CalorieGoal(p.WeightKg, p.HeightCm, p.AgeYears, p.ActivityMinutes)
	}
	return p, g
}

func formatScratch(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func profileFromScratch(s map[models.DataKey]string) (models.Profile, error) {
	var p models.Profile
	fields := []struct {
		key models.DataKey
		dst *float64
	}{
		{models.DataKeyWeight, &p.WeightKg},
		{models.DataKeyHeight, &p.HeightCm},
		{models.DataKeyAge, &p.AgeYears},
		{models.DataKeyActivity, &p.ActivityMinutes},
	}
	for _, f := range fields {
		raw, ok := s[f.key]
		if !ok {
			return p, fmt.Errorf("missing %s", f.key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}
	p.City = strings.TrimSpace(s[models.DataKeyCity])
	if p.City == "" {
		return p, fmt.Errorf("missing %s", models.DataKeyCity)
	}
	return p, nil
}
