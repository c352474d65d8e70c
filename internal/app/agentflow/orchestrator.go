package agentflow

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

// Config holds the time budgets and pool size of the workflow.
type Config struct {
	PlannerTimeout    time.Duration
	RecipeTimeout     time.Duration
	RecipeConcurrency int
	ListTimeout       time.Duration
	NutritionTimeout  time.Duration
}

// DefaultConfig returns the budgets used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		PlannerTimeout:    5 * time.Second,
		RecipeTimeout:     5 * time.Second,
		RecipeConcurrency: 5,
		ListTimeout:       5 * time.Second,
		NutritionTimeout:  5 * time.Second,
	}
}

// Workers bundles the raw collaborators. Any of them may be nil, in which
// case the stage always takes its fallback path.
type Workers struct {
	Planner   domain.Planner
	Recipes   domain.RecipeFinder
	Lists     domain.ListBuilder
	Nutrition domain.NutritionEstimator
}

// Orchestrator runs planning, recipe lookup, then list building and nutrition
// analysis side by side. No worker failure stops it.
type Orchestrator struct {
	planner   *PlannerStage
	recipes   *RecipePool
	lists     *ListStage
	nutrition *NutritionStage
	obs       *observability.Provider
}

func NewOrchestrator(w Workers, cfg Config, obs *observability.Provider) *Orchestrator {
	if obs == nil {
		obs = observability.Nop()
	}
	return &Orchestrator{
		planner:   NewPlannerStage(w.Planner, cfg.PlannerTimeout),
		recipes:   NewRecipePool(w.Recipes, cfg.RecipeConcurrency, cfg.RecipeTimeout, obs),
		lists:     NewListStage(w.Lists, cfg.ListTimeout),
		nutrition: NewNutritionStage(w.Nutrition, cfg.NutritionTimeout),
		obs:       obs,
	}
}

// RunInput is what the orchestrator needs from a resolved workflow request.
type RunInput struct {
	Request             domain.PlanRequest
	IncludeShoppingList bool
	IncludeNutrition    bool
}

// Run executes the pipeline and records states and stage reports on res,
// ending in AGGREGATED.
func (o *Orchestrator) Run(ctx context.Context, in RunInput, res *domain.WorkflowResult) {
	log := o.obs.LoggerFromContext(ctx).With("session_id", res.SessionID)

	// Planning
	res.States = append(res.States, domain.StatePlanning)
	planOut := o.stage(ctx, domain.StagePlanner, func(ctx context.Context) domain.StageReport {
		out := o.planner.Run(ctx, in.Request)
		res.Plan = out.Value
		return out.Report(domain.StagePlanner)
	})
	res.Stages = append(res.Stages, planOut)
	log.Info("planning done", "status", planOut.Status, "meals", len(res.Plan.Meals))

	// Recipe lookup
	res.States = append(res.States, domain.StateRecipeLookup)
	recipeOut := o.stage(ctx, domain.StageRecipeFinder, func(ctx context.Context) domain.StageReport {
		out := o.recipes.Lookup(ctx, res.Plan.Meals, in.Request.Restrictions)
		res.Recipes = out.Value
		return out.Report(domain.StageRecipeFinder)
	})
	res.Stages = append(res.Stages, recipeOut)
	log.Info("recipe lookup done",
		"recipes_found", res.Recipes.RecipesFound,
		"total_meals", res.Recipes.TotalMeals,
	)

	// List building and nutrition only read the lookup output, so they run together.
	var (
		wg         sync.WaitGroup
		listRep    domain.StageReport
		nutrRep    domain.StageReport
		list       *domain.ShoppingList
		report     *domain.NutritionReport
		withRecipe = mealsWithRecipes(res.Plan.Meals, res.Recipes.Recipes)
	)
	if in.IncludeShoppingList {
		res.States = append(res.States, domain.StateListBuilding)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listRep = o.stage(ctx, domain.StageListBuilder, func(ctx context.Context) domain.StageReport {
				out := o.lists.Run(ctx, res.Recipes.Recipes, true)
				list = out.Value
				return out.Report(domain.StageListBuilder)
			})
		}()
	}
	if in.IncludeNutrition {
		res.States = append(res.States, domain.StateNutrition)
		wg.Add(1)
		go func() {
			defer wg.Done()
			nutrRep = o.stage(ctx, domain.StageNutrition, func(ctx context.Context) domain.StageReport {
				out := o.nutrition.Run(ctx, withRecipe)
				report = out.Value
				return out.Report(domain.StageNutrition)
			})
		}()
	}
	wg.Wait()

	if in.IncludeShoppingList {
		res.ShoppingList = list
		res.Stages = append(res.Stages, listRep)
	} else {
		res.Stages = append(res.Stages, domain.StageReport{Stage: domain.StageListBuilder, Status: domain.OutcomeSkipped})
	}
	if in.IncludeNutrition {
		res.Nutrition = report
		res.Stages = append(res.Stages, nutrRep)
	} else {
		res.Stages = append(res.Stages, domain.StageReport{Stage: domain.StageNutrition, Status: domain.OutcomeSkipped})
	}

	res.States = append(res.States, domain.StateAggregated)
}

// stage runs fn inside a span and counts fallbacks.
func (o *Orchestrator) stage(ctx context.Context, stage domain.Stage, fn func(context.Context) domain.StageReport) domain.StageReport {
	ctx, span := o.obs.Tracer().Start(ctx, "workflow."+string(stage))
	defer span.End()

	rep := fn(ctx)

	span.SetAttributes(attribute.String("outcome", string(rep.Status)))
	if rep.Reason != "" {
		span.AddEvent("degraded", trace.WithAttributes(attribute.String("reason", rep.Reason)))
	}
	if rep.Status == domain.OutcomeFallback {
		o.obs.Metrics().Fallback(ctx, string(stage))
		o.obs.LoggerFromContext(ctx).Warn("worker fell back", "stage", stage, "reason", rep.Reason)
	}
	return rep
}

func mealsWithRecipes(meals []domain.Meal, recipes map[string]*domain.Recipe) []domain.MealWithRecipe {
	out := make([]domain.MealWithRecipe, 0, len(meals))
	for _, m := range meals {
		out = append(out, domain.MealWithRecipe{Meal: m, Recipe: recipes[m.Key()]})
	}
	return out
}
