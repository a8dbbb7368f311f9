package discover

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/txyyddss/actions-stock-monitor/internal/config"
	"github.com/txyyddss/actions-stock-monitor/internal/parser"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

type funcFetcher struct {
	calls atomic.Int32
	fn    func(url string) (stock.Page, error)
}

func (f *funcFetcher) Fetch(_ context.Context, url string, opts stock.FetchOptions) (stock.Page, error) {
	f.calls.Add(1)
	if opts.AllowSolver {
		return stock.Page{}, fmt.Errorf("discovery must not escalate to the solver")
	}
	return f.fn(url)
}

func productPage(pid int, links ...string) string {
	body := fmt.Sprintf(`<html><body><div class="package"><h3>Plan %d</h3>
	<span>$%d.00/mo</span><a href="/cart.php?a=add&pid=%d">Order Now</a></div>`, pid, pid, pid)
	for _, l := range links {
		body += fmt.Sprintf(`<a href="%s">more</a>`, l)
	}
	return body + "</body></html>"
}

func testConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		MaxPages:             40,
		MaxListings:          2000,
		Workers:              2,
		BatchSize:            3,
		StopAfterNoNew:       4,
		StopAfterFetchErrors: 4,
		ForceThreshold:       0,
	}
}

func TestRunStopsAtMaxPages(t *testing.T) {
	// Every page links to two fresh pages, so only the page cap stops the
	// crawl.
	var next atomic.Int32
	f := &funcFetcher{fn: func(url string) (stock.Page, error) {
		a := next.Add(2)
		return stock.Page{
			URL: url, FinalURL: url, Status: 200,
			Body: productPage(int(a), fmt.Sprintf("/p/%d", a-1), fmt.Sprintf("/p/%d", a)),
		}, nil
	}}

	cfg := testConfig()
	cfg.MaxPages = 5
	o := New(f, parser.NewRegistry(), cfg, zap.NewNop(), nil)

	candidates, report := o.Run(context.Background(), "shop.example.com",
		"https://shop.example.com/", []string{"https://shop.example.com/p/start"}, 3)

	require.Equal(t, StopMaxPages, report.StopReason)
	require.Equal(t, 5, report.PagesVisited)
	require.NotEmpty(t, candidates)
}

func TestRunNoNewStreakStops(t *testing.T) {
	var pages atomic.Int32
	f := &funcFetcher{fn: func(url string) (stock.Page, error) {
		n := pages.Add(1)
		// Empty pages that keep feeding the frontier.
		return stock.Page{
			URL: url, FinalURL: url, Status: 200,
			Body: fmt.Sprintf(`<html><body><a href="/n/%d">next</a></body></html>`, n),
		}, nil
	}}

	cfg := testConfig()
	cfg.StopAfterNoNew = 4
	o := New(f, parser.NewRegistry(), cfg, zap.NewNop(), nil)

	_, report := o.Run(context.Background(), "shop.example.com",
		"https://shop.example.com/", []string{"https://shop.example.com/n/0"}, 10)

	require.Equal(t, StopNoNewStreak, report.StopReason)
	require.False(t, report.Forced)
	require.Less(t, report.PagesVisited, cfg.MaxPages)
}

func TestRunForcedIgnoresStreaks(t *testing.T) {
	f := &funcFetcher{fn: func(url string) (stock.Page, error) {
		return stock.Page{URL: url, FinalURL: url, Status: 200,
			Body: `<html><body>nothing here</body></html>`}, nil
	}}

	cfg := testConfig()
	cfg.StopAfterNoNew = 1
	cfg.ForceThreshold = 5
	o := New(f, parser.NewRegistry(), cfg, zap.NewNop(), nil)

	// Seed yield at or below the threshold forces a full crawl.
	_, report := o.Run(context.Background(), "shop.example.com",
		"https://shop.example.com/", nil, 0)

	require.True(t, report.Forced)
	require.Equal(t, StopExhausted, report.StopReason)
	// All default entry paths were visited despite yielding nothing.
	require.Equal(t, len(defaultEntryPaths), report.PagesVisited)
}

func TestRunFetchErrorStreakStops(t *testing.T) {
	f := &funcFetcher{fn: func(url string) (stock.Page, error) {
		return stock.Page{}, &stock.FetchError{Kind: stock.KindTransient, URL: url}
	}}

	cfg := testConfig()
	cfg.StopAfterFetchErrors = 3
	o := New(f, parser.NewRegistry(), cfg, zap.NewNop(), nil)

	_, report := o.Run(context.Background(), "shop.example.com",
		"https://shop.example.com/", nil, 10)

	require.Equal(t, StopFetchErrors, report.StopReason)
	require.GreaterOrEqual(t, report.FetchErrors, 3)
}

func TestRunDeadlineKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var pages atomic.Int32
	f := &funcFetcher{fn: func(url string) (stock.Page, error) {
		if pages.Add(1) >= 3 {
			cancel()
		}
		n := pages.Load()
		return stock.Page{URL: url, FinalURL: url, Status: 200,
			Body: productPage(int(n), fmt.Sprintf("/p/%d", n))}, nil
	}}

	o := New(f, parser.NewRegistry(), testConfig(), zap.NewNop(), nil)
	candidates, report := o.Run(ctx, "shop.example.com",
		"https://shop.example.com/", []string{"https://shop.example.com/p/a"}, 5)

	require.Equal(t, StopDeadline, report.StopReason)
	require.NotEmpty(t, candidates)
}
