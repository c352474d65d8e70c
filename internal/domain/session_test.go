package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

func TestSessionClone_UserContextIsIndependent(t *testing.T) {
	fb := "too spicy"
	orig := &domain.Session{
		ID: "s1",
		Context: domain.Values{
			domain.ContextUserContext: domain.UserContext{
				Preferences: map[string]any{"budget": 50.0, "favorite_cuisines": []any{"thai"}},
				RecentMeals: []domain.RecentMeal{{Date: "2026-01-02", Meals: json.RawMessage(`[1]`), Feedback: &fb}},
			},
		},
	}

	cp := orig.Clone()
	uc, ok := cp.Context[domain.ContextUserContext].(domain.UserContext)
	require.True(t, ok)
	uc.Preferences["budget"] = 1.0
	uc.Preferences["favorite_cuisines"].([]any)[0] = "italian"
	uc.RecentMeals[0].Meals[1] = '9'
	*uc.RecentMeals[0].Feedback = "fine"
	uc.RecentMeals[0].Date = "changed"

	want := domain.UserContext{
		Preferences: map[string]any{"budget": 50.0, "favorite_cuisines": []any{"thai"}},
		RecentMeals: []domain.RecentMeal{{Date: "2026-01-02", Meals: json.RawMessage(`[1]`), Feedback: &fb}},
	}
	assert.Equal(t, want, orig.Context[domain.ContextUserContext])
	assert.Equal(t, "too spicy", fb)
}

func TestSessionClone_WorkflowOutputsAreIndependent(t *testing.T) {
	orig := &domain.Session{
		ID: "s2",
		Context: domain.Values{
			domain.ContextLastMealPlan: &domain.MealPlan{
				Meals: []domain.Meal{{Day: 1, MealType: domain.MealLunch, Name: "Soup"}},
				Days:  1,
			},
			domain.ContextLastRecipes: domain.RecipeLookup{
				Recipes: map[string]*domain.Recipe{"day1_lunch": {Title: "Soup", Ingredients: []string{"leek"}}},
			},
			domain.ContextLastShoppingList: &domain.ShoppingList{
				Items:            []string{"leek"},
				GroupedBySection: map[string][]string{"produce": {"leek"}},
				EstimatedCost:    &domain.CostEstimate{ItemCosts: map[string]float64{"leek": 2}},
			},
		},
	}

	cp := orig.Clone()
	cp.Context[domain.ContextLastMealPlan].(*domain.MealPlan).Meals[0].Name = "Stew"
	cp.Context[domain.ContextLastRecipes].(domain.RecipeLookup).Recipes["day1_lunch"].Ingredients[0] = "beef"
	list := cp.Context[domain.ContextLastShoppingList].(*domain.ShoppingList)
	list.Items[0] = "beef"
	list.GroupedBySection["produce"][0] = "beef"
	list.EstimatedCost.ItemCosts["leek"] = 99

	assert.Equal(t, "Soup", orig.Context[domain.ContextLastMealPlan].(*domain.MealPlan).Meals[0].Name)
	assert.Equal(t, []string{"leek"}, orig.Context[domain.ContextLastRecipes].(domain.RecipeLookup).Recipes["day1_lunch"].Ingredients)
	origList := orig.Context[domain.ContextLastShoppingList].(*domain.ShoppingList)
	assert.Equal(t, []string{"leek"}, origList.Items)
	assert.Equal(t, []string{"leek"}, origList.GroupedBySection["produce"])
	assert.Equal(t, 2.0, origList.EstimatedCost.ItemCosts["leek"])
}

func TestSessionClone_Nil(t *testing.T) {
	var s *domain.Session
	assert.Nil(t, s.Clone())
}
