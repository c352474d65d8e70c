package kitchen

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

var meatWords = regexp.MustCompile(`(?i)\b(chicken|salmon|tuna|fish|shrimp|beef|lamb|meat|pork|ham|turkey|bacon|sausage)\b`)

var meatSubstitutes = map[string]string{
	"chicken": "tofu",
	"salmon":  "tofu",
	"fish":    "tofu",
	"beef":    "lentils",
	"meat":    "vegetables",
	"pork":    "jackfruit",
	"turkey":  "tofu",
	"bacon":   "mushrooms",
	"sausage": "beans",
	"lamb":    "chickpeas",
	"shrimp":  "tofu",
	"tuna":    "chickpeas",
	"ham":     "smoked tofu",
}

type recipeTemplate struct {
	title   string
	minutes int
	summary string
}

var recipeTemplates = []recipeTemplate{
	{"Delicious %s", 30, "A simple and tasty %s recipe."},
	{"Healthy %s Bowl", 25, "A nutritious take on %s."},
	{"Classic %s", 45, "The traditional way to make %s."},
}

// Catalog is a local recipe source. It returns one deterministic recipe per
// query and never calls out.
type Catalog struct {
	latency time.Duration
}

type CatalogOption func(*Catalog)

// WithLatency makes every lookup wait d (or until ctx is done) before
// answering, standing in for a slow upstream.
func WithLatency(d time.Duration) CatalogOption {
	return func(c *Catalog) { c.latency = d }
}

func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Catalog) Find(ctx context.Context, meal domain.Meal, restrictions []string) (*domain.Recipe, error) {
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	query := strings.TrimSpace(meal.Name)
	if query == "" {
		return nil, nil
	}
	if domain.DietFor(restrictions).MeatFree() {
		query = substituteMeat(query)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(query)))
	sum := h.Sum32()
	tpl := recipeTemplates[sum%uint32(len(recipeTemplates))]

	return &domain.Recipe{
		ID:             int(sum % 1_000_000),
		Title:          fmt.Sprintf(tpl.title, query),
		ReadyInMinutes: tpl.minutes,
		Servings:       4,
		SourceURL:      fmt.Sprintf("https://example.com/recipes/%d", sum%1_000_000),
		Summary:        fmt.Sprintf(tpl.summary, strings.ToLower(query)),
		Ingredients:    ingredientsFor(query),
	}, nil
}

// substituteMeat swaps meat and fish words for plant-based ones.
func substituteMeat(query string) string {
	return meatWords.ReplaceAllStringFunc(query, func(w string) string {
		return meatSubstitutes[strings.ToLower(w)]
	})
}

// ingredientsFor derives a plausible ingredient list from a dish name.
func ingredientsFor(name string) []string {
	lower := strings.ToLower(name)
	base := []string{"salt", "pepper", "olive oil"}

	switch {
	case strings.Contains(lower, "pasta"):
		return append(base, "pasta", "tomato sauce", "garlic", "onion")
	case strings.Contains(lower, "chicken"):
		return append(base, "chicken breast", "vegetables", "herbs")
	case strings.Contains(lower, "salad"):
		return append(base, "lettuce", "tomato", "cucumber", "dressing")
	case strings.Contains(lower, "curry"):
		return append(base, "curry powder", "coconut milk", "vegetables", "rice")
	}
	return append(base, lower, "vegetables", "spices")
}
