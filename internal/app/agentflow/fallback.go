package agentflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

var fallbackMenus = map[domain.MealType]map[domain.Diet][]string{
	domain.MealBreakfast: {
		domain.DietVegetarian: {"Oatmeal with berries", "Scrambled eggs with toast", "Greek yogurt parfait", "Avocado toast", "Pancakes with fruit"},
		domain.DietVegan:      {"Oatmeal with berries", "Avocado toast", "Smoothie bowl", "Chia pudding", "Fruit salad"},
		domain.DietDefault:    {"Oatmeal with berries", "Scrambled eggs with toast", "Greek yogurt parfait", "Avocado toast"},
	},
	domain.MealLunch: {
		domain.DietVegetarian: {"Caesar salad", "Vegetable stir-fry", "Quinoa bowl", "Caprese sandwich", "Lentil soup"},
		domain.DietVegan:      {"Caesar salad (vegan)", "Vegetable stir-fry", "Quinoa bowl", "Hummus wrap", "Lentil soup"},
		domain.DietDefault:    {"Caesar salad", "Chicken wrap", "Vegetable stir-fry", "Quinoa bowl"},
	},
	domain.MealDinner: {
		domain.DietVegetarian: {"Pasta with marinara", "Tofu curry", "Mushroom risotto", "Vegetable lasagna", "Stuffed peppers"},
		domain.DietVegan:      {"Pasta with marinara", "Tofu curry", "Lentil curry", "Vegetable stir-fry", "Chickpea curry"},
		domain.DietDefault:    {"Pasta with marinara", "Grilled chicken with vegetables", "Tofu curry", "Salmon with rice"},
	},
}

// FallbackPlan builds a plan locally from fixed menus. The same request always
// yields the same plan.
func FallbackPlan(req domain.PlanRequest) *domain.MealPlan {
	diet := domain.DietFor(req.Restrictions)
	meals := make([]domain.Meal, 0, req.Days*len(domain.MealTypes))
	for day := 1; day <= req.Days; day++ {
		for _, mt := range domain.MealTypes {
			options := fallbackMenus[mt][diet]
			name := options[(day-1)%len(options)]
			meals = append(meals, domain.Meal{
				Day:         day,
				MealType:    mt,
				Name:        name,
				Description: fmt.Sprintf("A delicious %s for %s", strings.ToLower(name), mt),
			})
		}
	}
	return &domain.MealPlan{
		Meals:        meals,
		Summary:      fmt.Sprintf("Generated %d-day meal plan with %d meals", req.Days, len(meals)),
		Days:         req.Days,
		Restrictions: req.Restrictions,
		Preferences:  req.Cuisines,
	}
}

// FallbackShoppingList merges the recipes' ingredients without grouping or
// pricing.
func FallbackShoppingList(recipes map[string]*domain.Recipe) *domain.ShoppingList {
	keys := make([]string, 0, len(recipes))
	for k := range recipes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := map[string]struct{}{}
	items := []string{}
	for _, k := range keys {
		r := recipes[k]
		if r == nil {
			continue
		}
		for _, ing := range r.Ingredients {
			n := strings.ToLower(strings.TrimSpace(ing))
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			items = append(items, n)
		}
	}
	return &domain.ShoppingList{Items: items, TotalItems: len(items)}
}

// Per-meal figures used when the estimator is unavailable.
const (
	fallbackCalories = 500
	fallbackProtein  = 25
	fallbackCarbs    = 50
	fallbackFat      = 20
)

func FallbackNutrition(meals []domain.MealWithRecipe) *domain.NutritionReport {
	n := float64(len(meals))
	return &domain.NutritionReport{
		TotalCalories:   fallbackCalories * n,
		TotalProteinG:   fallbackProtein * n,
		TotalCarbsG:     fallbackCarbs * n,
		TotalFatG:       fallbackFat * n,
		MealsAnalyzed:   len(meals),
		Recommendations: []string{"Detailed nutrition analysis is unavailable; totals use average values per meal."},
	}
}
