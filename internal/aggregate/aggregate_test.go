package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txyyddss/actions-stock-monitor/internal/parser"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

func TestAddMergesByPurchaseURL(t *testing.T) {
	a := New("Shop.Example.com")

	a.Add(parser.Candidate{
		Title:       "VPS",
		PurchaseURL: "https://shop.example.com/cart.php?a=add&pid=7",
		StatusHint:  stock.StatusInStock,
	}, false)
	a.Add(parser.Candidate{
		Title:       "VPS Starter 1GB",
		PurchaseURL: "https://shop.example.com/cart.php?pid=7&a=add",
		Price:       stock.Price{Amount: "4.99", Currency: "USD"},
		Specs:       map[string]string{"RAM": "1 GB"},
	}, false)

	ls := a.Listings()
	require.Len(t, ls, 1)
	l := ls[0]
	require.Equal(t, "shop.example.com", l.Domain)
	require.Equal(t, "VPS Starter 1GB", l.Title)
	require.Equal(t, stock.StatusInStock, l.Status)
	require.Equal(t, "4.99", l.Price.Amount)
	require.Equal(t, "1 GB", l.Specs["RAM"])
}

func TestAddStatusSeverity(t *testing.T) {
	a := New("shop.example.com")
	url := "https://shop.example.com/cart.php?a=add&pid=1"

	a.Add(parser.Candidate{Title: "Plan", PurchaseURL: url, StatusHint: stock.StatusInStock}, false)
	a.Add(parser.Candidate{Title: "Plan", PurchaseURL: url, StatusHint: stock.StatusOutOfStock}, false)
	// An unknown hint never downgrades an explicit status.
	a.Add(parser.Candidate{Title: "Plan", PurchaseURL: url, StatusHint: stock.StatusUnknown}, false)

	ls := a.Listings()
	require.Len(t, ls, 1)
	require.Equal(t, stock.StatusOutOfStock, ls[0].Status)
}

func TestAddLocationsSplitListings(t *testing.T) {
	a := New("shop.example.com")
	url := "https://shop.example.com/cart.php?a=add&pid=2"

	a.Add(parser.Candidate{Title: "Plan", PurchaseURL: url, Location: "Hong Kong", StatusHint: stock.StatusInStock}, false)
	a.Add(parser.Candidate{Title: "Plan", PurchaseURL: url, Location: "Los Angeles", StatusHint: stock.StatusOutOfStock}, false)

	ls := a.Listings()
	require.Len(t, ls, 2)
	require.NotEqual(t, ls[0].ID, ls[1].ID)
}

func TestAddRecordsLocationLinks(t *testing.T) {
	a := New("shop.example.com")

	a.Add(parser.Candidate{
		Title:       "Plan",
		PurchaseURL: "https://shop.example.com/cart.php?pid=4&a=add",
		Location:    "Tokyo",
		StatusHint:  stock.StatusInStock,
	}, false)

	ls := a.Listings()
	require.Len(t, ls, 1)
	require.Equal(t, []string{"Tokyo"}, ls[0].Locations)
	require.Equal(t, "https://shop.example.com/cart.php?a=add&pid=4", ls[0].LocationLinks["Tokyo"])
}

func TestAddHiddenSticks(t *testing.T) {
	a := New("shop.example.com")
	url := "https://shop.example.com/cart.php?a=add&pid=3"

	a.Add(parser.Candidate{Title: "Secret Plan", PurchaseURL: url, StatusHint: stock.StatusOutOfStock}, true)
	a.Add(parser.Candidate{Title: "Secret Plan", PurchaseURL: url}, false)

	ls := a.Listings()
	require.Len(t, ls, 1)
	require.True(t, ls[0].Hidden)
}

func TestAddDropsNoise(t *testing.T) {
	a := New("shop.example.com")

	a.Add(parser.Candidate{PurchaseURL: "https://shop.example.com/store"}, false)
	a.Add(parser.Candidate{Title: "Accept cookies", PurchaseURL: "https://shop.example.com/store", Price: stock.Price{Amount: "1"}}, false)
	a.Add(parser.Candidate{Title: "Plan"}, false)

	require.Empty(t, a.Listings())
}

func TestListingsDeterministicOrder(t *testing.T) {
	a := New("shop.example.com")
	a.Add(parser.Candidate{Title: "B", PurchaseURL: "https://shop.example.com/cart.php?a=add&pid=9", StatusHint: stock.StatusInStock}, false)
	a.Add(parser.Candidate{Title: "A", PurchaseURL: "https://shop.example.com/cart.php?a=add&pid=1", StatusHint: stock.StatusInStock}, false)

	ls := a.Listings()
	require.Len(t, ls, 2)
	require.Less(t, ls[0].ID, ls[1].ID)
}
