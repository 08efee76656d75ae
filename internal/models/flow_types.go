// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType represents a specific type of dialogue flow
type FlowType string

// StateType represents a specific state within a flow
type StateType string

// DataKey represents a key for storing state-specific scratch data
type DataKey string

// Flow type constants.
const (
	FlowTypeProfile FlowType = "profile"
	FlowTypeFood    FlowType = "food"
)

// State constants for the profile flow, in the order they are visited.
const (
	StateAwaitingWeight              StateType = "AWAITING_WEIGHT"
	StateAwaitingHeight              StateType = "AWAITING_HEIGHT"
	StateAwaitingAge                 StateType = "AWAITING_AGE"
	StateAwaitingActivity            StateType = "AWAITING_ACTIVITY"
	StateAwaitingCity                StateType = "AWAITING_CITY"
	StateAwaitingCalorieGoalOverride StateType = "AWAITING_CALORIE_GOAL_OVERRIDE"
)

// State constants for the food flow.
const (
	StateAwaitingFoodQuery StateType = "AWAITING_FOOD_QUERY"
	StateAwaitingGrams     StateType = "AWAITING_GRAMS"
)

// StateDone marks a finished flow. A conversation in this state is inactive.
const StateDone StateType = "DONE"

// Data key constants for profile scratch.
const (
	DataKeyWeight   DataKey = "weight"
	DataKeyHeight   DataKey = "height"
	DataKeyAge      DataKey = "age"
	DataKeyActivity DataKey = "activity"
	DataKeyCity     DataKey = "city"
)
