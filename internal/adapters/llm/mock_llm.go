package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// MockLLM answers planning prompts with a deterministic plan so the service
// runs end to end without a model.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

var mockMenus = map[domain.Diet]map[domain.MealType][]string{
	domain.DietDefault: {
		domain.MealBreakfast: {"Veggie omelette", "Banana pancakes", "Yogurt with granola"},
		domain.MealLunch:     {"Chicken caesar wrap", "Tomato basil soup", "Turkey club sandwich"},
		domain.MealDinner:    {"Beef tacos", "Salmon with rice", "Pasta primavera"},
	},
	domain.DietVegetarian: {
		domain.MealBreakfast: {"Veggie omelette", "Banana pancakes", "Yogurt with granola"},
		domain.MealLunch:     {"Caprese panini", "Tomato basil soup", "Falafel bowl"},
		domain.MealDinner:    {"Pasta primavera", "Black bean tacos", "Vegetable curry"},
	},
	domain.DietVegan: {
		domain.MealBreakfast: {"Tofu scramble", "Peanut butter toast", "Berry smoothie"},
		domain.MealLunch:     {"Falafel bowl", "Lentil soup", "Chickpea salad"},
		domain.MealDinner:    {"Vegetable curry", "Black bean tacos", "Mushroom stir-fry"},
	},
}

// GenerateReply returns a fenced JSON meal plan built from the request
// embedded in the prompt.
func (m *MockLLM) GenerateReply(_ context.Context, prompt domain.Prompt) (string, error) {
	req, ok := parsePlanRequest(prompt.User)
	if !ok || req.Days < 1 {
		return "I can help you plan meals. How many days should the plan cover?", nil
	}

	menu := mockMenus[domain.DietFor(req.Restrictions)]
	style := ""
	if len(req.Cuisines) > 0 {
		style = fmt.Sprintf(" with a %s twist", strings.ToLower(req.Cuisines[0]))
	}

	type mealWire struct {
		Day         int    `json:"day"`
		MealType    string `json:"meal_type"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	plan := struct {
		Meals   []mealWire `json:"meals"`
		Summary string     `json:"summary"`
	}{
		Summary: fmt.Sprintf("A %d-day plan with balanced meals%s.", req.Days, style),
	}
	for day := 1; day <= req.Days; day++ {
		for _, mt := range domain.MealTypes {
			options := menu[mt]
			name := options[(day-1)%len(options)]
			plan.Meals = append(plan.Meals, mealWire{
				Day:         day,
				MealType:    string(mt),
				Name:        name,
				Description: fmt.Sprintf("Homemade %s%s", strings.ToLower(name), style),
			})
		}
	}

	body, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("mock plan: %w", err)
	}
	return "Here is your plan:\n```json\n" + string(body) + "\n```", nil
}
