package tools_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/mealprep-agent/internal/app/tools"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

func sampleList() *domain.ShoppingList {
	return &domain.ShoppingList{
		Items: []string{"salt", "tomato", "lettuce", "cheese"},
		GroupedBySection: map[string][]string{
			"produce": {"tomato", "lettuce"},
			"dairy":   {"cheese"},
			"pantry":  {"salt"},
		},
		Sections:      []string{"produce", "dairy", "pantry"},
		TotalItems:    4,
		EstimatedCost: &domain.CostEstimate{TotalEstimate: 11, Currency: "USD"},
	}
}

func TestOrderLinksTool_Call(t *testing.T) {
	tool := tools.NewOrderLinksTool()
	assert.Equal(t, "order_links", tool.Name())

	out, err := tool.Call(context.Background(), tools.ToolContext{SessionID: "s1"}, map[string]any{
		"shopping_list":     sampleList(),
		"preferred_service": "whole foods",
		"budget":            20.0,
	})
	require.NoError(t, err)

	assert.Equal(t, "s1", out["session_id"])
	assert.Equal(t, []string{"tomato", "lettuce", "cheese", "salt"}, out["items"], "items follow store sections")
	assert.Equal(t, 4, out["total_items"])
	assert.Equal(t, "Whole Foods", out["recommended_service"])

	services, ok := out["services"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, services, len(tools.DefaultServices))

	instacart := services["Instacart"].(map[string]any)
	assert.Equal(t, "https://www.instacart.com/store/search?q=tomato+lettuce+cheese", instacart["search_url"])
	amazon := services["Amazon Fresh"].(map[string]any)
	assert.Equal(t, "https://www.amazon.com/s?k=tomato+lettuce+cheese", amazon["search_url"])

	tips := out["tips"].([]string)
	assert.Equal(t, "You're within budget! $9.00 remaining", tips[0])
}

func TestOrderLinksTool_UnknownServiceAndMissingList(t *testing.T) {
	tool := tools.NewOrderLinksTool()

	out, err := tool.Call(context.Background(), tools.ToolContext{}, map[string]any{
		"shopping_list":     sampleList(),
		"preferred_service": "corner shop",
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "recommended_service")

	_, err = tool.Call(context.Background(), tools.ToolContext{}, map[string]any{})
	assert.ErrorIs(t, err, domain.ErrNoShoppingList)
}

func TestCheckoutTips(t *testing.T) {
	list := sampleList()

	budget := 10.0
	tips := tools.CheckoutTips(list, &budget)
	assert.Equal(t, "Your estimated cost ($11.00) exceeds your budget ($10.00)", tips[0])
	assert.Contains(t, tips[1], "store-brand")
	assert.Len(t, tips, 5)

	assert.Len(t, tools.CheckoutTips(list, nil), 3)

	big := &domain.ShoppingList{TotalItems: 25}
	for i := 0; i < 25; i++ {
		big.Items = append(big.Items, fmt.Sprintf("item %d", i))
	}
	assert.Contains(t, tools.CheckoutTips(big, nil)[0], "multiple trips")
}
