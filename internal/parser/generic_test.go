package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

const catalogHTML = `<html><body>
<div class="package">
  <h3>VPS Starter</h3>
  <ul>
    <li>CPU: 1 vCore</li>
    <li>RAM: 1 GB</li>
    <li>Disk: 20 GB SSD</li>
  </ul>
  <span class="price">$4.99/mo</span>
  <a href="/cart.php?a=add&pid=11">Order Now</a>
</div>
<div class="package">
  <h3>VPS Pro</h3>
  <ul>
    <li>CPU: 4 vCores</li>
    <li>RAM: 8 GB</li>
  </ul>
  <span class="price">$19.99/mo</span>
  <p>Out of Stock</p>
  <a href="/cart.php?a=add&pid=12">Order Now</a>
</div>
<a href="/store/dedicated">Dedicated Servers</a>
<a href="/clientarea.php">Client Area</a>
<a href="https://other.example.net/promo">Partner</a>
<a href="/knowledgebase/42">Docs</a>
</body></html>`

func TestGenericNormalizeCards(t *testing.T) {
	g := NewGeneric()
	res := g.Normalize(stock.Page{
		URL:      "https://shop.example.com/store",
		FinalURL: "https://shop.example.com/store",
		Status:   200,
		Body:     catalogHTML,
	})

	require.Len(t, res.Candidates, 2)

	starter := res.Candidates[0]
	require.Equal(t, "VPS Starter", starter.Title)
	require.Equal(t, "4.99", starter.Price.Amount)
	require.Equal(t, "USD", starter.Price.Currency)
	require.Equal(t, "Monthly", starter.Price.BillingCycle)
	require.Equal(t, "1 vCore", starter.Specs["CPU"])
	require.Equal(t, "20 GB SSD", starter.Specs["Disk"])
	require.Contains(t, starter.PurchaseURL, "pid=11")

	pro := res.Candidates[1]
	require.Equal(t, "VPS Pro", pro.Title)
	require.Equal(t, stock.StatusOutOfStock, pro.StatusHint)
	require.Contains(t, pro.PurchaseURL, "pid=12")
}

func TestGenericHarvestsOnlyProductLinks(t *testing.T) {
	g := NewGeneric()
	res := g.Normalize(stock.Page{
		URL:    "https://shop.example.com/store",
		Status: 200,
		Body:   catalogHTML,
	})

	require.Contains(t, res.Links, "https://shop.example.com/store/dedicated")
	for _, l := range res.Links {
		require.NotContains(t, l, "clientarea")
		require.NotContains(t, l, "knowledgebase")
		require.NotContains(t, l, "other.example.net")
	}
}

func TestGenericWholePageFallback(t *testing.T) {
	body := `<html><head><title>Shop</title></head><body>
	<h1>Dedicated E3-1230</h1>
	<p>RAM: 32 GB</p>
	<p>In Stock</p>
	<a href="/cart.php?a=add&pid=7">Order Now</a>
	</body></html>`

	g := NewGeneric()
	res := g.Normalize(stock.Page{
		URL:    "https://shop.example.com/dedicated/e3",
		Status: 200,
		Body:   body,
	})

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	require.Equal(t, "Dedicated E3-1230", c.Title)
	require.Equal(t, stock.StatusInStock, c.StatusHint)
	require.Contains(t, c.PurchaseURL, "pid=7")
}

func TestGenericNavigationPageYieldsNoCandidates(t *testing.T) {
	body := `<html><body><h1>Welcome</h1><a href="/about">About us</a></body></html>`

	g := NewGeneric()
	res := g.Normalize(stock.Page{URL: "https://shop.example.com/", Status: 200, Body: body})
	require.Empty(t, res.Candidates)
}

type stubParser struct{ title string }

func (s stubParser) Normalize(stock.Page) Result {
	return Result{Candidates: []Candidate{{Title: s.title}}}
}

func TestRegistryResolution(t *testing.T) {
	r := NewRegistry()
	r.Register("Example.com", stubParser{title: "custom"})

	require.Equal(t, "custom", r.ForDomain("example.com").Normalize(stock.Page{}).Candidates[0].Title)
	require.Equal(t, "custom", r.ForDomain("shop.example.com").Normalize(stock.Page{}).Candidates[0].Title)

	// Unregistered domains fall back to the generic parser.
	_, isGeneric := r.ForDomain("unrelated.net").(*Generic)
	require.True(t, isGeneric)
}
