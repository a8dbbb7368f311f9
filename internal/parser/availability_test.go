package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

func TestExtractAvailability(t *testing.T) {
	cases := []struct {
		name string
		text string
		want stock.Status
	}{
		{"explicit out of stock", "VPS Basic - Out of Stock", stock.StatusOutOfStock},
		{"sold out", "This plan is SOLD OUT", stock.StatusOutOfStock},
		{"chinese oos", "KVM 套餐 已售罄", stock.StatusOutOfStock},
		{"strong in stock", "In Stock! Order today", stock.StatusInStock},
		{"chinese in stock", "有库存，立即购买", stock.StatusInStock},
		{"weak hint alone is unknown", "Add to cart", stock.StatusUnknown},
		{"conflicting signals", "In stock ... out of stock", stock.StatusUnknown},
		{"positive counter wins", "Sold out elsewhere but 5 Available", stock.StatusInStock},
		{"zero counter wins", "Stock: 0", stock.StatusOutOfStock},
		{"mixed counters fall through", "3 available Stock: 0 out of stock", stock.StatusOutOfStock},
		{"empty", "", stock.StatusUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractAvailability(tc.text))
		})
	}
}

func TestLooksLikePurchaseAction(t *testing.T) {
	require.True(t, LooksLikePurchaseAction("  Order Now  "))
	require.True(t, LooksLikePurchaseAction("立即購買"))
	require.False(t, LooksLikePurchaseAction("Read more"))
	require.False(t, LooksLikePurchaseAction(""))
}
