package agentflow

import (
	"context"
	"time"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// ListStage wraps the list builder with a timeout and FallbackShoppingList.
type ListStage struct {
	builder domain.ListBuilder
	timeout time.Duration
}

func NewListStage(b domain.ListBuilder, timeout time.Duration) *ListStage {
	return &ListStage{builder: b, timeout: timeout}
}

func (s *ListStage) Run(ctx context.Context, recipes map[string]*domain.Recipe, optimize bool) Outcome[*domain.ShoppingList] {
	fallback := func(why string) Outcome[*domain.ShoppingList] {
		return Outcome[*domain.ShoppingList]{Value: FallbackShoppingList(recipes), Status: domain.OutcomeFallback, Reason: why}
	}
	if s.builder == nil {
		return fallback("no list builder configured")
	}

	list, err := Timebox(ctx, domain.StageListBuilder, s.timeout, func(ctx context.Context) (*domain.ShoppingList, error) {
		return s.builder.Build(ctx, recipes, optimize)
	})
	if err != nil {
		return fallback(reason(err))
	}
	if list == nil {
		return fallback("empty result")
	}
	return Outcome[*domain.ShoppingList]{Value: list, Status: domain.OutcomeOK}
}

// NutritionStage wraps the estimator with a timeout and FallbackNutrition.
type NutritionStage struct {
	estimator domain.NutritionEstimator
	timeout   time.Duration
}

func NewNutritionStage(e domain.NutritionEstimator, timeout time.Duration) *NutritionStage {
	return &NutritionStage{estimator: e, timeout: timeout}
}

func (s *NutritionStage) Run(ctx context.Context, meals []domain.MealWithRecipe) Outcome[*domain.NutritionReport] {
	fallback := func(why string) Outcome[*domain.NutritionReport] {
		return Outcome[*domain.NutritionReport]{Value: FallbackNutrition(meals), Status: domain.OutcomeFallback, Reason: why}
	}
	if s.estimator == nil {
		return fallback("no nutrition estimator configured")
	}

	report, err := Timebox(ctx, domain.StageNutrition, s.timeout, func(ctx context.Context) (*domain.NutritionReport, error) {
		return s.estimator.Analyze(ctx, meals)
	})
	if err != nil {
		return fallback(reason(err))
	}
	if report == nil {
		return fallback("empty result")
	}
	return Outcome[*domain.NutritionReport]{Value: report, Status: domain.OutcomeOK}
}
