package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

func TestExtractPrice(t *testing.T) {
	cases := []struct {
		name string
		text string
		want stock.Price
	}{
		{
			name: "dollar prefix monthly",
			text: "Starting at $4.99/mo",
			want: stock.Price{Amount: "4.99", Currency: "USD", BillingCycle: "Monthly"},
		},
		{
			name: "euro with yearly",
			text: "€29.00 billed annually",
			want: stock.Price{Amount: "29.00", Currency: "EUR", BillingCycle: "Yearly"},
		},
		{
			name: "hk dollar beats plain dollar",
			text: "HK$88 quarterly",
			want: stock.Price{Amount: "88", Currency: "HKD", BillingCycle: "Quarterly"},
		},
		{
			name: "amount before currency",
			text: "价格 199 元 每月 monthly",
			want: stock.Price{Amount: "199", Currency: "CNY", BillingCycle: "Monthly"},
		},
		{
			name: "thousands separator",
			text: "$1,299.50 one-time setup",
			want: stock.Price{Amount: "1299.50", Currency: "USD", BillingCycle: "One-Time"},
		},
		{
			name: "comma decimal",
			text: "EUR 9,99 monthly",
			want: stock.Price{Amount: "9.99", Currency: "EUR", BillingCycle: "Monthly"},
		},
		{
			name: "semiannual before annual",
			text: "$12 semi-annually",
			want: stock.Price{Amount: "12", Currency: "USD", BillingCycle: "Semiannual"},
		},
		{
			name: "no price",
			text: "contact sales for a quote",
			want: stock.Price{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractPrice(tc.text))
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	require.Equal(t, "1299.50", normalizeAmount("1,299.50"))
	require.Equal(t, "1299", normalizeAmount("1,299"))
	require.Equal(t, "9.99", normalizeAmount("9,99"))
	require.Equal(t, "1234567", normalizeAmount("1,234,567"))
}
