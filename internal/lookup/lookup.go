// Package lookup provides the weather and food adapters used when deriving goals and
// logging meals.
//
// Adapters never return errors. Every failure collapses into an explicit result value
// that carries a FailureReason, so callers can fall back without error plumbing.
package lookup

import (
	"context"
	"time"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

// DefaultTimeout bounds every outbound lookup request.
const DefaultTimeout = 10 * time.Second

// FailureReason names why a lookup produced no value.
type FailureReason string

const (
	ReasonNone              FailureReason = ""
	ReasonMissingCredential FailureReason = "missing_credential"
	ReasonEmptyQuery        FailureReason = "empty_query"
	ReasonNetwork           FailureReason = "network"
	ReasonBadStatus         FailureReason = "bad_status"
	ReasonMalformed         FailureReason = "malformed_response"
	ReasonNotFound          FailureReason = "not_found"
	ReasonNoEnergyData      FailureReason = "no_energy_data"
)

// Temperature is the outcome of a weather lookup.
type Temperature struct {
	Celsius float64
	Known   bool
	Reason  FailureReason
}

// KnownTemperature returns a successful result.
func KnownTemperature(c float64) Temperature {
	return Temperature{Celsius: c, Known: true}
}

// UnknownTemperature returns a failed result with the given reason.
func UnknownTemperature(reason FailureReason) Temperature {
	return Temperature{Reason: reason}
}

// Value returns the temperature, or nil when it is unknown.
func (t Temperature) Value() *float64 {
	if !t.Known {
		return nil
	}
	c := t.Celsius
	return &c
}

// FoodResult is the outcome of a food lookup.
type FoodResult struct {
	Candidate models.FoodCandidate
	Found     bool
	Reason    FailureReason
}

// FoundFood returns a successful result.
func FoundFood(name string, kcalPer100g float64) FoodResult {
	return FoodResult{Candidate: models.FoodCandidate{Name: name, KcalPer100g: kcalPer100g}, Found: true}
}

// FoodNotFound returns a failed result with the given reason.
func FoodNotFound(reason FailureReason) FoodResult {
	return FoodResult{Reason: reason}
}

// TemperatureFetcher resolves the current temperature of a city.
type TemperatureFetcher interface {
	FetchTemperature(ctx context.Context, city string) Temperature
}

// FoodFetcher resolves the energy density of a free-text food query.
type FoodFetcher interface {
	FetchFoodEnergy(ctx context.Context, query string) FoodResult
}
