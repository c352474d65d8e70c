package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/adapters/llm"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// LLMPlanner asks a language model for a meal plan and decodes its answer.
// It does not validate the plan; the workflow does.
type LLMPlanner struct {
	llm domain.LLMClient
}

func NewLLMPlanner(client domain.LLMClient) *LLMPlanner {
	return &LLMPlanner{llm: client}
}

func (p *LLMPlanner) Plan(ctx context.Context, req domain.PlanRequest) (*domain.MealPlan, error) {
	reply, err := p.llm.GenerateReply(ctx, llm.BuildPlanPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("planner llm: %w", err)
	}

	raw, ok := extractJSON(reply)
	if !ok {
		return nil, errors.New("planner reply has no JSON object")
	}

	var out struct {
		Meals   []domain.Meal `json:"meals"`
		Summary string        `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode planner reply: %w", err)
	}

	return &domain.MealPlan{
		Meals:        out.Meals,
		Summary:      out.Summary,
		Days:         req.Days,
		Restrictions: req.Restrictions,
		Preferences:  req.Cuisines,
	}, nil
}

// extractJSON pulls the JSON object out of a model reply, which may wrap it in
// a ```json fence or surround it with prose.
func extractJSON(reply string) (string, bool) {
	if i := strings.Index(reply, "```json"); i >= 0 {
		rest := reply[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j]), true
		}
	}
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}
