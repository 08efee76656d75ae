package models

import "time"

// Profile holds the biometric inputs collected by the profile dialogue.
type Profile struct {
	WeightKg        float64 `json:"weight_kg"`
	HeightCm        float64 `json:"height_cm"`
	AgeYears        float64 `json:"age_years"`
	ActivityMinutes float64 `json:"activity_minutes"` // per day
	City            string  `json:"city"`
}

// Goals holds the daily targets derived from a Profile.
type Goals struct {
	WaterMl           float64  `json:"water_ml"`
	CalorieKcal       float64  `json:"calorie_kcal"`
	CalorieOverridden bool     `json:"calorie_overridden"`
	TemperatureC      *float64 `json:"temperature_c,omitempty"` // nil when the weather was unavailable
}

// FoodCandidate is a looked-up food waiting for a quantity.
type FoodCandidate struct {
	Name        string  `json:"name"`
	KcalPer100g float64 `json:"kcal_per_100g"`
}

// KcalFor returns the energy of the given quantity in grams.
func (f FoodCandidate) KcalFor(grams float64) float64 {
	return f.KcalPer100g * grams / 100
}

// UserRecord is the committed per-user state: profile, goals and daily accumulators.
//
// The accumulators only ever grow. PendingFood is set by a successful food lookup and
// cleared once a quantity is logged or the food dialogue is abandoned.
type UserRecord struct {
	UserID             string         `json:"user_id"`
	Profile            *Profile       `json:"profile,omitempty"`
	Goals              *Goals         `json:"goals,omitempty"`
	LoggedWaterMl      float64        `json:"logged_water_ml"`
	LoggedCaloriesKcal float64        `json:"logged_calories_kcal"`
	BurnedCaloriesKcal float64        `json:"burned_calories_kcal"`
	PendingFood        *FoodCandidate `json:"pending_food,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NewUserRecord returns a default record with no profile and zero accumulators.
func NewUserRecord(userID string) *UserRecord {
	now := time.Now()
	return &UserRecord{UserID: userID, CreatedAt: now, UpdatedAt: now}
}

// HasProfile reports whether the profile dialogue has completed at least once.
func (u *UserRecord) HasProfile() bool {
	return u != nil && u.Profile != nil && u.Profile.WeightKg > 0 && u.Goals != nil
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.Profile != nil {
		p := *u.Profile
		c.Profile = &p
	}
	if u.Goals != nil {
		g := *u.Goals
		if u.Goals.TemperatureC != nil {
			t := *u.Goals.TemperatureC
			g.TemperatureC = &t
		}
		c.Goals = &g
	}
	if u.PendingFood != nil {
		f := *u.PendingFood
		c.PendingFood = &f
	}
	return &c
}
