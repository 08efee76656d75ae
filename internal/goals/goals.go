// Package goals implements the formulas that turn a profile into daily water and
// calorie targets, and workouts into burned calories.
//
// Every function here is pure.
package goals

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// WaterMlPerKg is the base hydration per kilogram of body weight.
	WaterMlPerKg = 30.0
	// WaterActivityBonusMl is added for every full ActivityBlockMinutes of daily activity.
	WaterActivityBonusMl = 500.0
	// ActivityBlockMinutes is the activity unit used by the hydration formulas.
	ActivityBlockMinutes = 30.0
	// WorkoutExtraWaterMl is suggested for every full ActivityBlockMinutes of a workout.
	WorkoutExtraWaterMl = 200.0

	// HotThresholdC and WarmThresholdC are exclusive lower bounds for the heat bonus.
	HotThresholdC  = 30.0
	WarmThresholdC = 25.0
	HotBonusMl     = 1000.0
	WarmBonusMl    = 500.0

	// DefaultWorkoutRate is the burn rate in kcal/min for unknown workout types.
	DefaultWorkoutRate = 5.0
	// ReferenceWeightKg scales workout burn rates to the user's weight.
	ReferenceWeightKg = 70.0
)

// ErrNotANumber is returned by ParseNumber for text that is not a finite number.
var ErrNotANumber = errors.New("not a number")

// workoutRates maps lower-cased workout names to kcal burned per minute at ReferenceWeightKg.
var workoutRates = map[string]float64{
	"run":     10,
	"running": 10,
	"jog":     8,
	"walk":    4,
	"walking": 4,
	"bike":    8,
	"cycling": 8,
	"swim":    9,
	"gym":     6,
	"hiit":    12,
	"yoga":    3,
}

// WaterGoal returns the daily water target in ml.
// A nil temperature means the weather was unavailable and adds no heat bonus.
func WaterGoal(weightKg, activityMinutes float64, temperatureC *float64) float64 {
	base := weightKg * WaterMlPerKg
	activityBonus := WaterActivityBonusMl * math.Trunc(activityMinutes/ActivityBlockMinutes)
	return base + activityBonus + HeatBonus(temperatureC)
}

// HeatBonus returns the extra water in ml for the given temperature.
func HeatBonus(temperatureC *float64) float64 {
	if temperatureC == nil {
		return 0
	}
	switch t := *temperatureC; {
	case t > HotThresholdC:
		return HotBonusMl
	case t > WarmThresholdC:
		return WarmBonusMl
	default:
		return 0
	}
}

// CalorieGoal returns the daily calorie target in kcal.
// Tier boundaries at 30 and 60 minutes are inclusive of the lower tier.
func CalorieGoal(weightKg, heightCm, ageYears, activityMinutes float64) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*ageYears
	var bonus float64
	switch {
	case activityMinutes <= 30:
		bonus = 200
	case activityMinutes <= 60:
		bonus = 300
	default:
		bonus = 400
	}
	return base + bonus
}

// WorkoutRate returns kcal per minute for a workout type, ignoring case and
// surrounding spaces.
func WorkoutRate(workoutType string) float64 {
	if rate, ok := workoutRates[strings.ToLower(strings.TrimSpace(workoutType))]; ok {
		return rate
	}
	return DefaultWorkoutRate
}

// WorkoutBurn returns the calories burned by a workout, scaled to body weight.
func WorkoutBurn(workoutType string, minutes, weightKg float64) float64 {
	return minutes * WorkoutRate(workoutType) * (weightKg / ReferenceWeightKg)
}

// ExtraHydrationForWorkout returns the suggested extra water in ml for a workout.
func ExtraHydrationForWorkout(minutes float64) float64 {
	return WorkoutExtraWaterMl * math.Trunc(minutes/ActivityBlockMinutes)
}

// Remaining returns goal minus done, clamped at zero.
func Remaining(goal, done float64) float64 {
	return math.Max(goal-done, 0)
}

// NetCalories returns consumed minus burned. It may be negative.
func NetCalories(consumed, burned float64) float64 {
	return consumed - burned
}

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses user input as a finite decimal number. Both "." and "," are
// accepted as the decimal separator.
func ParseNumber(text string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if !decimalPattern.MatchString(s) {
		return 0, ErrNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	return v, nil
}
