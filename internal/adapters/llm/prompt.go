package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

const planSystemPrompt = `
You are a meal planning assistant.

Your job:
- Plan breakfast, lunch and dinner for every requested day.
- Respect every dietary restriction strictly. Never suggest meat or fish for vegetarian users,
  and no animal products at all for vegan users.
- Prefer the requested cuisines and the user's favorite cuisines; avoid disliked foods.
- Keep the total cost within the budget when one is given.
- Avoid repeating meals the user had recently unless they liked them.

Output format:
- Answer ONLY with a JSON object, no prose, with this shape:
  {
    "meals": [
      {"day": 1, "meal_type": "breakfast", "name": "Meal name", "description": "Brief description"}
    ],
    "summary": "Brief summary of the plan"
  }
- "meal_type" is one of "breakfast", "lunch", "dinner".
- "day" starts at 1.
`

// requestMarker introduces the machine readable copy of the request in the
// user content.
const requestMarker = "REQUEST:"

// planRequestWire is the JSON echo of the planning request.
type planRequestWire struct {
	Days         int      `json:"days"`
	Restrictions []string `json:"dietary_restrictions"`
	Cuisines     []string `json:"cuisine_preferences"`
	Budget       *float64 `json:"budget,omitempty"`
}

// BuildPlanPrompt renders the planner request and the user's stored context.
func BuildPlanPrompt(req domain.PlanRequest) domain.Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a %d-day meal plan.\n", req.Days)
	fmt.Fprintf(&b, "Dietary restrictions: %s\n", listOrNone(req.Restrictions))
	fmt.Fprintf(&b, "Cuisine preferences: %s\n", listOrNone(req.Cuisines))
	if req.Budget != nil {
		fmt.Fprintf(&b, "Budget: $%.2f\n", *req.Budget)
	} else {
		b.WriteString("Budget: flexible\n")
	}

	prefs := domain.Values(req.UserContext.Preferences)
	if favs, ok := prefs.Strings(domain.PrefFavoriteCuisines); ok {
		fmt.Fprintf(&b, "User's favorite cuisines: %s\n", strings.Join(favs, ", "))
	}
	if dislikes, ok := prefs.Strings(domain.PrefDislikedFoods); ok {
		fmt.Fprintf(&b, "Foods to avoid: %s\n", strings.Join(dislikes, ", "))
	}

	if len(req.UserContext.RecentMeals) > 0 {
		b.WriteString("\nRecent plans:\n")
		for _, rm := range req.UserContext.RecentMeals {
			fmt.Fprintf(&b, "- %s: %s", rm.Date, string(rm.Meals))
			if rm.Feedback != nil {
				fmt.Fprintf(&b, " (feedback: %s)", *rm.Feedback)
			}
			b.WriteString("\n")
		}
	}

	wire, _ := json.Marshal(planRequestWire{
		Days:         req.Days,
		Restrictions: req.Restrictions,
		Cuisines:     req.Cuisines,
		Budget:       req.Budget,
	})
	b.WriteString("\n")
	b.WriteString(requestMarker)
	b.Write(wire)
	b.WriteString("\n")

	return domain.Prompt{
		System: planSystemPrompt,
		User:   b.String(),
	}
}

// parsePlanRequest recovers the request echoed by BuildPlanPrompt.
func parsePlanRequest(user string) (planRequestWire, bool) {
	idx := strings.LastIndex(user, requestMarker)
	if idx < 0 {
		return planRequestWire{}, false
	}
	line := user[idx+len(requestMarker):]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	var req planRequestWire
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return planRequestWire{}, false
	}
	return req, true
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
