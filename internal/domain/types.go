package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

type SessionID string
type UserID string

type Timestamp = time.Time

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// MealTypes lists the slots planned for every day, in serving order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

// Valid reports whether t is one of the three daily slots.
func (t MealType) Valid() bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

// Meal is a single slot of a meal plan
type Meal struct {
	Day         int      `json:"day"`
	MealType    MealType `json:"meal_type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
}

// Key identifies the slot a meal occupies; recipe lookups are keyed by it
// so that the same dish served on two days gets two independent lookups.
func (m Meal) Key() string {
	return fmt.Sprintf("day%d-%s", m.Day, m.MealType)
}

// MealPlan is the planner's output
type MealPlan struct {
	Meals        []Meal   `json:"meals"`
	Summary      string   `json:"summary"`
	Days         int      `json:"days"`
	Restrictions []string `json:"dietary_restrictions"`
	Preferences  []string `json:"preferences"`
}

type Recipe struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	ReadyInMinutes int      `json:"ready_in_minutes,omitempty"`
	Servings       int      `json:"servings,omitempty"`
	SourceURL      string   `json:"source_url,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Ingredients    []string `json:"ingredients,omitempty"`
}

// RecipeLookup is the recipe finder's aggregate output.
// A nil entry in Recipes means the lookup for that meal degraded to absent.
type RecipeLookup struct {
	Recipes      map[string]*Recipe `json:"meal_recipes"`
	TotalMeals   int                `json:"total_meals"`
	RecipesFound int                `json:"recipes_found"`
}

type CostEstimate struct {
	TotalEstimate float64            `json:"total_estimate"`
	ItemCosts     map[string]float64 `json:"item_costs"`
	Currency      string             `json:"currency"`
	Note          string             `json:"note,omitempty"`
}

type ShoppingList struct {
	Items            []string            `json:"items"`
	GroupedBySection map[string][]string `json:"grouped_by_section,omitempty"`
	Sections         []string            `json:"sections,omitempty"`
	TotalItems       int                 `json:"total_items"`
	EstimatedCost    *CostEstimate       `json:"estimated_cost,omitempty"`
}

// MealWithRecipe is the nutrition estimator's input unit
type MealWithRecipe struct {
	Meal   Meal    `json:"meal"`
	Recipe *Recipe `json:"recipe"`
}

type NutritionReport struct {
	TotalCalories   float64  `json:"total_calories"`
	TotalProteinG   float64  `json:"total_protein_g"`
	TotalCarbsG     float64  `json:"total_carbs_g"`
	TotalFatG       float64  `json:"total_fat_g"`
	MealsAnalyzed   int      `json:"meals_analyzed"`
	Recommendations []string `json:"recommendations"`
}

func (p *MealPlan) Clone() *MealPlan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Meals = slices.Clone(p.Meals)
	cp.Restrictions = slices.Clone(p.Restrictions)
	cp.Preferences = slices.Clone(p.Preferences)
	return &cp
}

func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Ingredients = slices.Clone(r.Ingredients)
	return &cp
}

func (l RecipeLookup) Clone() RecipeLookup {
	if l.Recipes == nil {
		return l
	}
	recipes := make(map[string]*Recipe, len(l.Recipes))
	for k, r := range l.Recipes {
		recipes[k] = r.Clone()
	}
	l.Recipes = recipes
	return l
}

func (l *ShoppingList) Clone() *ShoppingList {
	if l == nil {
		return nil
	}
	cp := *l
	cp.Items = slices.Clone(l.Items)
	cp.Sections = slices.Clone(l.Sections)
	if l.GroupedBySection != nil {
		cp.GroupedBySection = make(map[string][]string, len(l.GroupedBySection))
		for k, items := range l.GroupedBySection {
			cp.GroupedBySection[k] = slices.Clone(items)
		}
	}
	if l.EstimatedCost != nil {
		cost := *l.EstimatedCost
		cost.ItemCosts = maps.Clone(l.EstimatedCost.ItemCosts)
		cp.EstimatedCost = &cost
	}
	return &cp
}
