package flow

import (
	"strings"

	"github.com/BTreeMap/GoalPipe/internal/goals"
	"github.com/BTreeMap/GoalPipe/internal/lookup"
	"github.com/BTreeMap/GoalPipe/internal/models"
)

// FoodTransition is the result of feeding one input into the food dialogue.
//
// A non-empty Query asks the caller to look the food up and pass the result to
// ResolveFoodQuery. A positive Grams asks the caller to log that quantity of the
// pending food.
type FoodTransition struct {
	Conversation models.Conversation
	Reply        string
	Query        string
	Grams        float64
}

// StartFood returns a fresh food conversation and its first prompt.
func StartFood(userID string) (models.Conversation, string) {
	return models.Conversation{
		UserID:  userID,
		Flow:    models.FlowTypeFood,
		State:   models.StateAwaitingFoodQuery,
		Scratch: make(map[models.DataKey]string),
	}, msgAskFood
}

// AdvanceFood applies one reply to the food dialogue.
func AdvanceFood(conv models.Conversation, input string) FoodTransition {
	switch conv.State {
	case models.StateAwaitingFoodQuery:
		query := strings.Join(strings.Fields(input), " ")
		if query == "" {
			return FoodTransition{Conversation: *conv.Clone(), Reply: msgAskFood}
		}
		return FoodTransition{Conversation: *conv.Clone(), Query: query}

	case models.StateAwaitingGrams:
		grams, err := goals.ParseNumber(input)
		if err != nil || grams <= 0 {
			return FoodTransition{Conversation: *conv.Clone(), Reply: msgGramsInvalid}
		}
		done := conv.Clone()
		done.State = models.StateDone
		return FoodTransition{Conversation: *done, Grams: grams}
	}

	restart, ask := StartFood(conv.UserID)
	return FoodTransition{Conversation: restart, Reply: ask}
}

// ResolveFoodQuery advances the dialogue with a lookup result. A miss ends the
// dialogue; a hit moves it to the grams question.
func ResolveFoodQuery(conv models.Conversation, result lookup.FoodResult) FoodTransition {
	next := conv.Clone()
	if !result.Found {
		next.State = models.StateDone
		return FoodTransition{Conversation: *next, Reply: msgFoodNotFound}
	}
	next.State = models.StateAwaitingGrams
	return FoodTransition{Conversation: *next, Reply: foodFoundText(result.Candidate)}
}
