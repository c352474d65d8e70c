package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// GroceryService is an online store the user can order from.
type GroceryService struct {
	Name      string `json:"name"`
	SearchURL string `json:"-"`
	// QueryKey is the search parameter name; "q" when empty.
	QueryKey  string `json:"-"`
	CartURL   string `json:"-"`
}

// DefaultServices are the grocery services order links are generated for.
var DefaultServices = []GroceryService{
	{Name: "Instacart", SearchURL: "https://www.instacart.com/store/search", CartURL: "https://www.instacart.com/store/cart"},
	{Name: "Amazon Fresh", SearchURL: "https://www.amazon.com/s", QueryKey: "k", CartURL: "https://www.amazon.com/cart"},
	{Name: "Walmart Grocery", SearchURL: "https://www.walmart.com/search", CartURL: "https://www.walmart.com/cart"},
	{Name: "Kroger", SearchURL: "https://www.kroger.com/search", CartURL: "https://www.kroger.com/cart"},
	{Name: "Target", SearchURL: "https://www.target.com/s", CartURL: "https://www.target.com/cart"},
	{Name: "Whole Foods", SearchURL: "https://www.amazon.com/wholefoods/search", CartURL: "https://www.amazon.com/cart"},
}

const (
	searchItems   = 3
	manyItemsTrip = 20
)

// OrderLinksTool turns a shopping list into search and cart links for
// grocery services, plus checkout tips against the user's budget.
type OrderLinksTool struct {
	services []GroceryService
}

func NewOrderLinksTool(services ...GroceryService) *OrderLinksTool {
	if len(services) == 0 {
		services = DefaultServices
	}
	return &OrderLinksTool{services: services}
}

func (t *OrderLinksTool) Name() string {
	return "order_links"
}

// Call expects an input with this shape:
//
//	{
//	  "shopping_list":     *domain.ShoppingList,
//	  "preferred_service": "Kroger",   // optional
//	  "budget":            60.0        // optional
//	}
func (t *OrderLinksTool) Call(
	ctx context.Context,
	tctx ToolContext,
	input map[string]any,
) (map[string]any, error) {
	list, ok := input["shopping_list"].(*domain.ShoppingList)
	if !ok || list == nil {
		return nil, fmt.Errorf("order_links: %w", domain.ErrNoShoppingList)
	}

	preferred, _ := input["preferred_service"].(string)
	var budget *float64
	if b, ok := domain.AsFloat(input["budget"]); ok && b > 0 {
		budget = &b
	}

	items := listItems(list)
	services := make(map[string]any, len(t.services))
	for _, s := range t.services {
		services[s.Name] = map[string]any{
			"name":       s.Name,
			"search_url": searchURL(s, items),
			"cart_url":   s.CartURL,
			"available":  true,
		}
	}

	out := map[string]any{
		"session_id":  tctx.SessionID,
		"items":       items,
		"total_items": len(items),
		"services":    services,
		"tips":        CheckoutTips(list, budget),
	}
	if preferred != "" {
		if s, ok := t.lookup(preferred); ok {
			out["recommended_service"] = s.Name
		}
	}
	return out, nil
}

func (t *OrderLinksTool) lookup(name string) (GroceryService, bool) {
	for _, s := range t.services {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return GroceryService{}, false
}

// CheckoutTips returns shopping advice for list given an optional budget.
func CheckoutTips(list *domain.ShoppingList, budget *float64) []string {
	var tips []string

	total := 0.0
	if list.EstimatedCost != nil {
		total = list.EstimatedCost.TotalEstimate
	}
	if budget != nil {
		if total > *budget {
			tips = append(tips,
				fmt.Sprintf("Your estimated cost ($%.2f) exceeds your budget ($%.2f)", total, *budget),
				"Consider removing non-essential items or looking for store-brand alternatives",
			)
		} else {
			tips = append(tips, fmt.Sprintf("You're within budget! $%.2f remaining", *budget-total))
		}
	}
	if list.TotalItems > manyItemsTrip {
		tips = append(tips, "You have many items. Consider splitting into multiple trips or using online ordering")
	}
	return append(tips,
		"Have your payment method ready",
		"Check for digital coupons before checkout",
		"Review your list to avoid impulse purchases",
	)
}

// listItems prefers the grouped view so links follow store layout.
func listItems(list *domain.ShoppingList) []string {
	if len(list.Sections) == 0 {
		return append([]string(nil), list.Items...)
	}
	var items []string
	for _, sec := range list.Sections {
		items = append(items, list.GroupedBySection[sec]...)
	}
	return items
}

func searchURL(s GroceryService, items []string) string {
	if len(items) > searchItems {
		items = items[:searchItems]
	}
	key := s.QueryKey
	if key == "" {
		key = "q"
	}
	q := url.Values{}
	q.Set(key, strings.Join(items, " "))
	return s.SearchURL + "?" + q.Encode()
}
