package domain

import (
	"encoding/json"
	"slices"
)

// Preference types the coordinator reads and writes.
const (
	PrefDietaryRestriction = "dietary_restriction"
	PrefCuisinePreferences = "cuisine_preferences"
	PrefBudget             = "budget"
	PrefFavoriteCuisines   = "favorite_cuisines"
	PrefDislikedFoods      = "disliked_foods"
)

const (
	// MaxHistoryPerUser caps the retained history list; oldest entries are evicted first.
	MaxHistoryPerUser = 50
	// RecentMealsInContext is how many history entries the planner sees.
	RecentMealsInContext = 5
)

// PreferenceEntry is a durable single-valued fact about a user.
// There is at most one entry per (UserID, PreferenceType).
type PreferenceEntry struct {
	UserID         UserID    `json:"user_id"`
	PreferenceType string    `json:"preference_type"`
	Value          any       `json:"value"`
	CreatedAt      Timestamp `json:"created_at"`
	LastUpdated    Timestamp `json:"last_updated"`
}

// HistoryEntry records a past workflow result. Plan is kept opaque.
type HistoryEntry struct {
	UserID   UserID          `json:"user_id"`
	Plan     json.RawMessage `json:"meal_plan"`
	Date     Timestamp       `json:"date"`
	Feedback *string         `json:"feedback"`
}

// RecentMeal is the summarised form of a history entry.
type RecentMeal struct {
	Date     string          `json:"date"`
	Meals    json.RawMessage `json:"meals"`
	Feedback *string         `json:"feedback"`
}

// UserContext is the bootstrap context handed to the planner.
type UserContext struct {
	Preferences map[string]any `json:"preferences"`
	RecentMeals []RecentMeal   `json:"recent_meals"`
}

// Clone deep-copies c, including each history entry's raw meals.
func (c UserContext) Clone() UserContext {
	out := UserContext{Preferences: map[string]any(Values(c.Preferences).Clone())}
	if c.Preferences == nil {
		out.Preferences = nil
	}
	if c.RecentMeals != nil {
		out.RecentMeals = make([]RecentMeal, len(c.RecentMeals))
		for i, m := range c.RecentMeals {
			m.Meals = slices.Clone(m.Meals)
			if m.Feedback != nil {
				fb := *m.Feedback
				m.Feedback = &fb
			}
			out.RecentMeals[i] = m
		}
	}
	return out
}
