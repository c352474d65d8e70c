package kitchen

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// Store sections in the order they are checked; the first keyword match wins.
var sectionKeywords = []struct {
	section  string
	keywords []string
}{
	{"produce", []string{"lettuce", "tomato", "onion", "garlic", "pepper", "carrot", "celery", "potato", "apple", "banana", "orange"}},
	{"dairy", []string{"milk", "cheese", "yogurt", "butter", "cream", "eggs"}},
	{"meat", []string{"chicken", "beef", "pork", "fish", "salmon", "tuna", "shrimp", "lamb", "turkey", "bacon", "sausage"}},
	{"pantry", []string{"flour", "sugar", "salt", "pepper", "oil", "vinegar", "rice", "pasta", "beans", "canned"}},
	{"frozen", []string{"frozen", "ice cream"}},
	{"bakery", []string{"bread", "bagel", "roll", "croissant"}},
	{"beverages", []string{"juice", "soda", "water", "coffee", "tea"}},
}

const otherSection = "other"

// Section returns the store section an item belongs to.
func Section(item string) string {
	lower := strings.ToLower(item)
	for _, s := range sectionKeywords {
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) {
				return s.section
			}
		}
	}
	return otherSection
}

// Optimizer builds shopping lists: it normalises and dedupes ingredients,
// groups them by store section and prices them with a rough per-item table.
type Optimizer struct{}

func NewOptimizer() *Optimizer {
	return &Optimizer{}
}

func (o *Optimizer) Build(_ context.Context, recipes map[string]*domain.Recipe, optimize bool) (*domain.ShoppingList, error) {
	var raw []string
	for _, key := range sortedKeys(recipes) {
		if r := recipes[key]; r != nil {
			raw = append(raw, r.Ingredients...)
		}
	}

	items := normalizeIngredients(raw)
	list := &domain.ShoppingList{
		Items:      items,
		TotalItems: len(items),
	}
	if !optimize {
		return list, nil
	}

	list.GroupedBySection = make(map[string][]string)
	for _, item := range items {
		sec := Section(item)
		list.GroupedBySection[sec] = append(list.GroupedBySection[sec], item)
	}
	for _, s := range sectionKeywords {
		if _, ok := list.GroupedBySection[s.section]; ok {
			list.Sections = append(list.Sections, s.section)
		}
	}
	if _, ok := list.GroupedBySection[otherSection]; ok {
		list.Sections = append(list.Sections, otherSection)
	}
	list.EstimatedCost = estimateCost(items)
	return list, nil
}

// normalizeIngredients lowercases, trims, drops "fresh"/"dried" qualifiers
// and removes duplicates, keeping first-seen order.
func normalizeIngredients(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		n := strings.ToLower(strings.TrimSpace(item))
		n = strings.ReplaceAll(n, "fresh ", "")
		n = strings.ReplaceAll(n, "dried ", "")
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func itemCost(item string) float64 {
	switch {
	case Section(item) == "meat":
		return 8.0
	case containsAny(item, "cheese", "milk", "yogurt"):
		return 4.0
	case containsAny(item, "lettuce", "tomato", "onion", "pepper"):
		return 2.0
	case containsAny(item, "pasta", "rice", "flour"):
		return 3.0
	case containsAny(item, "bread", "bagel"):
		return 3.5
	}
	return 3.0
}

func estimateCost(items []string) *domain.CostEstimate {
	est := &domain.CostEstimate{
		ItemCosts: make(map[string]float64, len(items)),
		Currency:  "USD",
		Note:      "Estimates are approximate and may vary by location and store",
	}
	for _, item := range items {
		c := itemCost(item)
		est.ItemCosts[item] = c
		est.TotalEstimate += c
	}
	est.TotalEstimate = math.Round(est.TotalEstimate*100) / 100
	return est
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
