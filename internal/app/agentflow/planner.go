package agentflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// ErrMalformedPlan marks planner output that does not describe one meal per
// slot for every requested day.
var ErrMalformedPlan = errors.New("malformed meal plan")

// PlannerStage calls the planner within a time budget and falls back to
// FallbackPlan on timeout, error or malformed output.
type PlannerStage struct {
	planner domain.Planner
	timeout time.Duration
}

func NewPlannerStage(p domain.Planner, timeout time.Duration) *PlannerStage {
	return &PlannerStage{planner: p, timeout: timeout}
}

func (s *PlannerStage) Run(ctx context.Context, req domain.PlanRequest) Outcome[*domain.MealPlan] {
	if s.planner == nil {
		return Outcome[*domain.MealPlan]{Value: FallbackPlan(req), Status: domain.OutcomeFallback, Reason: "no planner configured"}
	}

	plan, err := Timebox(ctx, domain.StagePlanner, s.timeout, func(ctx context.Context) (*domain.MealPlan, error) {
		return s.planner.Plan(ctx, req)
	})
	if err == nil && plan != nil {
		for i := range plan.Meals {
			plan.Meals[i].MealType = domain.MealType(strings.ToLower(strings.TrimSpace(string(plan.Meals[i].MealType))))
		}
	}
	if err == nil {
		err = ValidatePlan(plan, req.Days)
	}
	if err != nil {
		return Outcome[*domain.MealPlan]{Value: FallbackPlan(req), Status: domain.OutcomeFallback, Reason: reason(err)}
	}

	normalizePlan(plan, req)
	return Outcome[*domain.MealPlan]{Value: plan, Status: domain.OutcomeOK}
}

// ValidatePlan checks that plan has exactly one breakfast, lunch and dinner
// for each day in [1, days] and that every meal is named.
func ValidatePlan(plan *domain.MealPlan, days int) error {
	if plan == nil {
		return fmt.Errorf("%w: empty", ErrMalformedPlan)
	}
	want := days * len(domain.MealTypes)
	if len(plan.Meals) != want {
		return fmt.Errorf("%w: %d meals, want %d", ErrMalformedPlan, len(plan.Meals), want)
	}
	seen := make(map[string]struct{}, want)
	for _, m := range plan.Meals {
		if m.Day < 1 || m.Day > days {
			return fmt.Errorf("%w: day %d out of range", ErrMalformedPlan, m.Day)
		}
		if !m.MealType.Valid() {
			return fmt.Errorf("%w: meal type %q", ErrMalformedPlan, m.MealType)
		}
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: unnamed meal on day %d", ErrMalformedPlan, m.Day)
		}
		if _, dup := seen[m.Key()]; dup {
			return fmt.Errorf("%w: duplicate slot %s", ErrMalformedPlan, m.Key())
		}
		seen[m.Key()] = struct{}{}
	}
	return nil
}

// normalizePlan orders meals by day and slot and fills request echo fields
// the planner left out.
func normalizePlan(plan *domain.MealPlan, req domain.PlanRequest) {
	order := map[domain.MealType]int{}
	for i, mt := range domain.MealTypes {
		order[mt] = i
	}
	sort.SliceStable(plan.Meals, func(i, j int) bool {
		a, b := plan.Meals[i], plan.Meals[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return order[a.MealType] < order[b.MealType]
	})
	plan.Days = req.Days
	if plan.Restrictions == nil {
		plan.Restrictions = req.Restrictions
	}
	if plan.Preferences == nil {
		plan.Preferences = req.Cuisines
	}
	if plan.Summary == "" {
		plan.Summary = fmt.Sprintf("%d-day meal plan with %d meals", req.Days, len(plan.Meals))
	}
}
