package kitchen

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// Macros is a per-meal nutrition estimate.
type Macros struct {
	Calories float64
	ProteinG float64
	CarbsG   float64
	FatG     float64
}

// DefaultMacros is used for dishes no rule matches.
var DefaultMacros = Macros{Calories: 500, ProteinG: 25, CarbsG: 50, FatG: 20}

// Daily targets the recommendations compare against.
var DailyTargets = Macros{Calories: 2000, ProteinG: 100, CarbsG: 250, FatG: 65}

var macroRules = []struct {
	keywords []string
	macros   Macros
}{
	{[]string{"salad", "bowl"}, Macros{400, 20, 40, 15}},
	{[]string{"pasta", "noodle"}, Macros{600, 20, 80, 15}},
	{[]string{"chicken", "meat"}, Macros{550, 40, 30, 25}},
	{[]string{"soup"}, Macros{300, 15, 35, 10}},
}

// EstimateMeal returns rough macros for a dish name.
func EstimateMeal(name string) Macros {
	lower := strings.ToLower(name)
	for _, r := range macroRules {
		if containsAny(lower, r.keywords...) {
			return r.macros
		}
	}
	return DefaultMacros
}

// Estimator analyses a plan with keyword heuristics.
type Estimator struct{}

func NewEstimator() *Estimator {
	return &Estimator{}
}

func (e *Estimator) Analyze(_ context.Context, meals []domain.MealWithRecipe) (*domain.NutritionReport, error) {
	var total Macros
	days := map[int]struct{}{}
	for _, m := range meals {
		name := m.Meal.Name
		if m.Recipe != nil && m.Recipe.Title != "" {
			name = m.Recipe.Title
		}
		mm := EstimateMeal(name)
		total.Calories += mm.Calories
		total.ProteinG += mm.ProteinG
		total.CarbsG += mm.CarbsG
		total.FatG += mm.FatG
		days[m.Meal.Day] = struct{}{}
	}

	report := &domain.NutritionReport{
		TotalCalories: round1(total.Calories),
		TotalProteinG: round1(total.ProteinG),
		TotalCarbsG:   round1(total.CarbsG),
		TotalFatG:     round1(total.FatG),
		MealsAnalyzed: len(meals),
	}
	report.Recommendations = Recommend(total, len(days))
	return report, nil
}

// Recommend compares the daily average of total against DailyTargets.
func Recommend(total Macros, days int) []string {
	if days < 1 {
		days = 1
	}
	n := float64(days)
	avg := Macros{total.Calories / n, total.ProteinG / n, total.CarbsG / n, total.FatG / n}
	t := DailyTargets

	var recs []string
	if avg.Calories < t.Calories*0.8 {
		recs = append(recs, fmt.Sprintf("Daily calories (%.0f) are below target. Consider adding healthy snacks.", avg.Calories))
	} else if avg.Calories > t.Calories*1.2 {
		recs = append(recs, fmt.Sprintf("Daily calories (%.0f) are above target. Consider smaller portions.", avg.Calories))
	}
	if avg.ProteinG < t.ProteinG*0.7 {
		recs = append(recs, "Protein intake is low. Add more lean proteins, legumes, or dairy.")
	}
	if avg.CarbsG < t.CarbsG*0.7 {
		recs = append(recs, "Carbohydrate intake is low. Include more whole grains and fruits.")
	}
	if avg.FatG > t.FatG*1.3 {
		recs = append(recs, "Fat intake is high. Choose leaner options and reduce added oils.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Nutritional balance looks good!")
	}
	return recs
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
