package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

// Commands understood by the engine.
const (
	CommandStart         = "start"
	CommandHelp          = "help"
	CommandSetProfile    = "set_profile"
	CommandLogWater      = "log_water"
	CommandLogFood       = "log_food"
	CommandLogWorkout    = "log_workout"
	CommandCheckProgress = "check_progress"
	CommandCancel        = "cancel"
)

// HelpText is the static reply to /start.
const HelpText = "Hi! I help you keep track of your daily water and calories.\n\n" +
	"Commands:\n" +
	"/set_profile - set up your profile\n" +
	"/log_water <ml> - log water\n" +
	"/log_food <food> - log food\n" +
	"/log_workout <type> <minutes> - log a workout\n" +
	"/check_progress - show today's progress\n" +
	"/cancel - cancel the current dialogue"

const (
	msgUnknown         = "I didn't understand that. Send /start to see the available commands."
	msgNeedProfile     = "Set up your profile first: /set_profile"
	msgCancelled       = "Cancelled."
	msgNothingToCancel = "There is nothing to cancel."

	msgAskWeight   = "Enter your weight (kg):"
	msgAskHeight   = "Enter your height (cm):"
	msgAskAge      = "Enter your age:"
	msgAskActivity = "How many minutes of activity do you get per day?"
	msgAskCity     = "Which city are you in?"
	msgAskOverride = "If you want to set your calorie goal manually, send the number. Otherwise send 0 to calculate it automatically."

	msgBadWeight   = "A number > 0 is required. Please enter your weight again."
	msgBadHeight   = "A number > 0 is required. Please enter your height again."
	msgBadAge      = "A number > 0 is required. Please enter your age again."
	msgBadActivity = "A number >= 0 is required. Please enter your activity again."
	msgBadCity     = "Please enter the city name as text."
	msgBadOverride = "A number >= 0 is required. Please enter the goal again."
	msgLostProfile = "Something went wrong with your answers. Let's start over.\n" + msgAskWeight

	msgWaterUsage   = "Usage: /log_water <ml>"
	msgWaterInvalid = "Enter the amount of water in ml (a number > 0)."

	msgAskFood        = "Which food did you eat?"
	msgFoodNotFound   = "I couldn't find that product or its calories. Try another query."
	msgGramsInvalid   = "Enter the grams as a number > 0."
	msgNoPendingFood  = "There is no product waiting for a quantity. Send /log_food <product>."
	msgWorkoutUsage   = "Usage: /log_workout <type> <minutes>"
	msgWorkoutInvalid = "Minutes must be a number > 0."
)

func profileSavedText(p models.Profile, g models.Goals) string {
	var b strings.Builder
	b.WriteString("Profile saved!\n")
	if g.TemperatureC != nil {
		fmt.Fprintf(&b, "Temperature in %s: %.1f°C.\n", p.City, *g.TemperatureC)
	} else {
		b.WriteString("Temperature unknown (no API key or weather service error).\n")
	}
	fmt.Fprintf(&b, "Water goal: %.0f ml.\n", g.WaterMl)
	fmt.Fprintf(&b, "Calorie goal: %.0f kcal.", g.CalorieKcal)
	return b.String()
}

func waterLoggedText(amount, remaining float64) string {
	return fmt.Sprintf("Logged: %.0f ml. Remaining: %.0f ml to your goal.", amount, remaining)
}

func foodFoundText(f models.FoodCandidate) string {
	return fmt.Sprintf("%s: %.0f kcal per 100 g. How many grams did you eat?", f.Name, f.KcalPer100g)
}

func foodLoggedText(kcal float64) string {
	return fmt.Sprintf("Logged: %.1f kcal.", kcal)
}

func workoutLoggedText(kind string, minutes, burned, extraWater float64) string {
	return fmt.Sprintf("Workout: %s, %.0f min, %.0f kcal burned. Drink an extra %.0f ml of water.",
		kind, minutes, burned, extraWater)
}

// ProgressReport holds the figures shown by /check_progress.
type ProgressReport struct {
	WaterLogged       float64
	WaterGoal         float64
	WaterRemaining    float64
	CaloriesConsumed  float64
	CalorieGoal       float64
	CaloriesBurned    float64
	NetCalories       float64
	CaloriesRemaining float64
}

// Text renders the report for chat.
func (p ProgressReport) Text() string {
	return fmt.Sprintf("📊 Progress:\n"+
		"Water:\n"+
		"- Drunk: %.0f ml of %.0f ml.\n"+
		"- Remaining: %.0f ml.\n\n"+
		"Calories:\n"+
		"- Consumed: %.0f kcal of %.0f kcal.\n"+
		"- Burned: %.0f kcal.\n"+
		"- Balance: %.0f kcal.\n"+
		"- Remaining to goal: %.0f kcal.",
		p.WaterLogged, p.WaterGoal, p.WaterRemaining,
		p.CaloriesConsumed, p.CalorieGoal, p.CaloriesBurned, p.NetCalories, p.CaloriesRemaining)
}
