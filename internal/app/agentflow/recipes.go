package agentflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

// Lookup statuses recorded per meal.
const (
	lookupFound    = "found"
	lookupNotFound = "not_found"
	lookupTimeout  = "timeout"
	lookupError    = "error"
)

// RecipePool looks recipes up for every meal of a plan with at most limit
// lookups in flight. Each lookup gets its own timeout, counted from the
// moment a pool slot picks it up.
type RecipePool struct {
	finder  domain.RecipeFinder
	limit   int
	timeout time.Duration
	obs     *observability.Provider
}

func NewRecipePool(finder domain.RecipeFinder, limit int, timeout time.Duration, obs *observability.Provider) *RecipePool {
	if limit < 1 {
		limit = 1
	}
	if obs == nil {
		obs = observability.Nop()
	}
	return &RecipePool{finder: finder, limit: limit, timeout: timeout, obs: obs}
}

// Lookup never fails as a whole: a meal whose lookup times out, errors or
// matches nothing maps to a nil recipe.
func (p *RecipePool) Lookup(ctx context.Context, meals []domain.Meal, restrictions []string) Outcome[domain.RecipeLookup] {
	out := domain.RecipeLookup{
		Recipes:    make(map[string]*domain.Recipe, len(meals)),
		TotalMeals: len(meals),
	}
	if p.finder == nil {
		for _, m := range meals {
			out.Recipes[m.Key()] = nil
		}
		return Outcome[domain.RecipeLookup]{Value: out, Status: domain.OutcomeAbsent, Reason: "no recipe finder configured"}
	}

	log := p.obs.LoggerFromContext(ctx)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.limit)

	for _, meal := range meals {
		g.Go(func() error {
			recipe, err := Timebox(ctx, domain.StageRecipeFinder, p.timeout, func(ctx context.Context) (*domain.Recipe, error) {
				return p.finder.Find(ctx, meal, restrictions)
			})

			status := lookupFound
			switch {
			case err != nil:
				status = lookupError
				var we *WorkerError
				if errors.As(err, &we) && we.Timeout {
					status = lookupTimeout
				}
				log.Warn("recipe lookup degraded", "meal", meal.Key(), "name", meal.Name, "status", status, "error", err)
				recipe = nil
			case recipe == nil:
				status = lookupNotFound
			}
			p.obs.Metrics().RecipeLookup(ctx, status)

			mu.Lock()
			out.Recipes[meal.Key()] = recipe
			if recipe != nil {
				out.RecipesFound++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if out.RecipesFound == out.TotalMeals {
		return Outcome[domain.RecipeLookup]{Value: out, Status: domain.OutcomeOK}
	}
	return Outcome[domain.RecipeLookup]{
		Value:  out,
		Status: domain.OutcomeAbsent,
		Reason: fmt.Sprintf("%d of %d meals without recipe", out.TotalMeals-out.RecipesFound, out.TotalMeals),
	}
}
