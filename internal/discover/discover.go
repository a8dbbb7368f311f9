// Package discover walks a storefront's internal links to find product
// pages, within page, listing, and time budgets.
package discover

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/txyyddss/actions-stock-monitor/internal/config"
	"github.com/txyyddss/actions-stock-monitor/internal/metrics"
	"github.com/txyyddss/actions-stock-monitor/internal/parser"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// Common storefront entry points probed in addition to links found on the
// primary page.
var defaultEntryPaths = []string{
	"/cart.php",
	"/store",
	"/index.php?rp=/store",
	"/store/vps",
	"/products",
	"/pricing",
}

// StopReason explains why a crawl ended.
type StopReason string

const (
	StopExhausted   StopReason = "frontier_exhausted"
	StopMaxPages    StopReason = "max_pages"
	StopMaxListings StopReason = "max_listings"
	StopDeadline    StopReason = "deadline"
	StopNoNewStreak StopReason = "no_new_streak"
	StopFetchErrors StopReason = "fetch_error_streak"
)

// Report summarizes one crawl.
type Report struct {
	PagesVisited int
	FetchErrors  int
	Forced       bool
	StopReason   StopReason
}

// Orchestrator expands a domain starting from seed links.
type Orchestrator struct {
	fetcher  stock.Fetcher
	registry *parser.Registry
	cfg      config.DiscoveryConfig
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(fetcher stock.Fetcher, registry *parser.Registry, cfg config.DiscoveryConfig, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, registry: registry, cfg: cfg, log: log, metrics: m}
}

type pageOutcome struct {
	url    string
	result parser.Result
	err    error
}

// Run crawls the domain breadth-first in bounded batches. seedLinks are the
// links already harvested from the primary page and seedYield the number of
// candidates it produced. Partial results are kept on every stop path.
//
// Streak-based stops are disabled (forced mode) when the primary page
// yielded few candidates, so thin storefronts get a full crawl.
func (o *Orchestrator) Run(ctx context.Context, domain, baseURL string, seedLinks []string, seedYield int) ([]parser.Candidate, Report) {
	visited := make(map[string]bool)
	mark := func(raw string) bool {
		n, err := stock.NormalizeURL(raw)
		if err != nil || visited[n] {
			return false
		}
		visited[n] = true
		return true
	}
	mark(baseURL)

	var frontier []string
	enqueue := func(raw string) {
		if stock.DomainOf(raw) == domain && mark(raw) {
			frontier = append(frontier, raw)
		}
	}
	for _, l := range seedLinks {
		enqueue(l)
	}
	for _, path := range defaultEntryPaths {
		enqueue("https://" + domain + path)
	}

	forced := seedYield <= o.cfg.ForceThreshold
	if forced {
		o.log.Debug("forced discovery, streak stops disabled",
			zap.String("domain", domain), zap.Int("seed_yield", seedYield))
	}

	var (
		candidates   []parser.Candidate
		report       Report
		noNewStreak  int
		errorStreak  int
		totalFetched = seedYield
	)

	for {
		if len(frontier) == 0 {
			report.StopReason = StopExhausted
			break
		}
		if report.PagesVisited >= o.cfg.MaxPages {
			report.StopReason = StopMaxPages
			break
		}
		if totalFetched >= o.cfg.MaxListings {
			report.StopReason = StopMaxListings
			break
		}
		if ctx.Err() != nil {
			report.StopReason = StopDeadline
			break
		}
		if !forced && noNewStreak >= o.cfg.StopAfterNoNew {
			report.StopReason = StopNoNewStreak
			break
		}
		if !forced && errorStreak >= o.cfg.StopAfterFetchErrors {
			report.StopReason = StopFetchErrors
			break
		}

		n := o.cfg.BatchSize
		if remaining := o.cfg.MaxPages - report.PagesVisited; n > remaining {
			n = remaining
		}
		if n > len(frontier) {
			n = len(frontier)
		}
		batch := frontier[:n]
		frontier = frontier[n:]

		outcomes := o.fetchBatch(ctx, batch)
		report.PagesVisited += len(batch)

		for _, out := range outcomes {
			if o.metrics != nil {
				o.metrics.DiscoveryPages.Inc()
			}
			if out.err != nil {
				report.FetchErrors++
				errorStreak++
				noNewStreak++
				o.log.Debug("discovery fetch failed",
					zap.String("url", out.url), zap.Error(out.err))
				continue
			}
			errorStreak = 0

			newHere := 0
			for _, c := range out.result.Candidates {
				if c.PurchaseURL == "" {
					c.PurchaseURL = out.url
				}
				candidates = append(candidates, c)
				newHere++
				totalFetched++
			}
			for _, l := range out.result.Links {
				enqueue(l)
			}
			if newHere == 0 {
				noNewStreak++
			} else {
				noNewStreak = 0
			}
		}
	}

	report.Forced = forced
	o.log.Info("discovery finished",
		zap.String("domain", domain),
		zap.Int("pages", report.PagesVisited),
		zap.Int("candidates", len(candidates)),
		zap.String("stop", string(report.StopReason)))
	return candidates, report
}

// fetchBatch fetches a batch concurrently and returns outcomes in input
// order. Discovery pages never escalate to the solver.
func (o *Orchestrator) fetchBatch(ctx context.Context, urls []string) []pageOutcome {
	outcomes := make([]pageOutcome, len(urls))
	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			page, err := o.fetcher.Fetch(ctx, u, stock.FetchOptions{AllowSolver: false})
			out := pageOutcome{url: u, err: err}
			if err == nil {
				p := o.registry.ForDomain(stock.DomainOf(u))
				out.result = p.Normalize(page)
			}
			outcomes[i] = out
		}(i, u)
	}
	wg.Wait()
	return outcomes
}
