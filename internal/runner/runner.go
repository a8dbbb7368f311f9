// Package runner wires the crawl pipeline together: fetch, parse, discover,
// probe, aggregate, diff, persist, notify.
package runner

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/txyyddss/actions-stock-monitor/internal/aggregate"
	"github.com/txyyddss/actions-stock-monitor/internal/config"
	"github.com/txyyddss/actions-stock-monitor/internal/discover"
	"github.com/txyyddss/actions-stock-monitor/internal/fetch"
	"github.com/txyyddss/actions-stock-monitor/internal/hiddenscan"
	"github.com/txyyddss/actions-stock-monitor/internal/metrics"
	"github.com/txyyddss/actions-stock-monitor/internal/notify"
	"github.com/txyyddss/actions-stock-monitor/internal/parser"
	"github.com/txyyddss/actions-stock-monitor/internal/retry"
	"github.com/txyyddss/actions-stock-monitor/internal/state"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// Runner owns one monitoring pipeline instance. All components are built
// once and shared across runs so the challenge-clearance cache survives
// between scheduled runs of the same process.
type Runner struct {
	cfg      config.Config
	fetcher  stock.Fetcher
	registry *parser.Registry
	discover *discover.Orchestrator
	hidden   *hiddenscan.Scanner
	notifier stock.Notifier
	clock    stock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// New assembles a Runner from configuration.
func New(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *Runner {
	clock := stock.SystemClock{}

	pol := retry.New(cfg.Fetch.MaxRetries,
		time.Duration(cfg.Fetch.BackoffInitialMs)*time.Millisecond,
		time.Duration(cfg.Fetch.BackoffMaxMs)*time.Millisecond,
		func(err error) bool {
			var fe *stock.FetchError
			return errors.As(err, &fe) && fe.Retryable()
		})

	fetcher := fetch.New(fetch.Config{
		Timeout:   cfg.FetchTimeout(),
		ProxyURL:  cfg.Fetch.ProxyURL,
		SolverURL: cfg.Fetch.SolverURL,
		CookieTTL: time.Duration(cfg.Fetch.CookieTTLSeconds) * time.Second,
		Retry:     pol,
	}, clock, log, m)

	registry := parser.NewRegistry()

	return &Runner{
		cfg:      cfg,
		fetcher:  fetcher,
		registry: registry,
		discover: discover.New(fetcher, registry, cfg.Discovery, log, m),
		hidden:   hiddenscan.New(fetcher, registry, cfg.Hidden, log, m),
		// Missing credentials degrade to render-only, same as a dry run.
		notifier: notify.NewTelegram(cfg.Notify, cfg.DryRun || cfg.Notify.BotToken == "", log, m),
		clock:    clock,
		log:      log,
		metrics:  m,
	}
}

// Options scopes a single run.
type Options struct {
	// ExplicitTargets marks a run restricted to operator-chosen URLs, which
	// disables snapshot pruning.
	ExplicitTargets bool
}

// domainJob groups a domain's entry URLs for one crawl.
type domainJob struct {
	domain string
	urls   []string
	expand bool
}

// RunOnce executes one full crawl-diff-notify cycle. A prior snapshot that
// exists but cannot be read aborts the run before any crawling starts.
func (r *Runner) RunOnce(ctx context.Context, opts Options) error {
	prior, err := state.Load(r.cfg.StatePath)
	if err != nil {
		return err
	}

	jobs := r.resolveTargets(prior)
	if len(jobs) == 0 {
		r.log.Warn("no targets to crawl", zap.String("mode", string(r.cfg.Mode)))
		return nil
	}

	results := r.crawlAll(ctx, jobs)

	now := r.clock.Now()
	next, events, sum := state.Diff(prior, results, now, state.DiffOptions{
		FullMode:        r.cfg.Mode == config.ModeFull,
		ExplicitTargets: opts.ExplicitTargets,
		StaleAfter:      r.cfg.ScheduleInterval(),
	})
	if err := state.Save(r.cfg.StatePath, next); err != nil {
		return err
	}

	for _, ev := range events {
		if r.metrics != nil {
			r.metrics.EventsEmitted.WithLabelValues(string(ev.Kind)).Inc()
		}
		// Delivery failures are already logged; a committed snapshot is
		// never rolled back for an undelivered message.
		_ = r.notifier.Notify(ctx, ev)
	}

	r.log.Info("run complete",
		zap.Int("domains_ok", sum.DomainsOK),
		zap.Int("domains_failed", sum.DomainsFailed),
		zap.Int("listings", sum.Listings),
		zap.Int("pruned", sum.Pruned),
		zap.Int("new_products", sum.NewProducts),
		zap.Int("restocks", sum.Restocks),
		zap.Int("new_locations", sum.NewLocations))
	return nil
}

// RunLoop keeps executing runs one scheduling interval apart until the
// context is canceled.
func (r *Runner) RunLoop(ctx context.Context, opts Options) error {
	interval := r.cfg.ScheduleInterval()
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	for {
		if err := r.RunOnce(ctx, opts); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// resolveTargets groups configured targets by domain. Lite runs keep only
// domains already present in the snapshot and disable expansion, trading
// coverage for speed.
func (r *Runner) resolveTargets(prior state.Snapshot) []domainJob {
	lite := r.cfg.Mode == config.ModeLite

	known := make(map[string]bool)
	if lite {
		for d := range prior.Domains {
			known[d] = true
		}
		for _, l := range prior.Listings {
			known[l.Domain] = true
		}
	}

	byDomain := make(map[string][]string)
	for _, t := range r.cfg.Targets {
		d := stock.DomainOf(t)
		if d == "" {
			r.log.Warn("skipping malformed target", zap.String("target", t))
			continue
		}
		if lite && !known[d] {
			continue
		}
		byDomain[d] = append(byDomain[d], t)
	}

	jobs := make([]domainJob, 0, len(byDomain))
	for _, d := range stock.SortedKeys(byDomain) {
		jobs = append(jobs, domainJob{domain: d, urls: byDomain[d], expand: !lite})
	}
	return jobs
}

// crawlAll runs domain jobs through the outer worker pool.
func (r *Runner) crawlAll(ctx context.Context, jobs []domainJob) []stock.DomainResult {
	workers := r.cfg.Run.Workers
	if workers <= 0 {
		workers = 1
	}

	jobCh := make(chan domainJob)
	results := make([]stock.DomainResult, 0, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				res := r.crawlDomain(ctx, job)
				if r.metrics != nil {
					status := stock.HealthOK
					if !res.OK {
						status = stock.HealthError
					}
					r.metrics.DomainsCrawled.WithLabelValues(status).Inc()
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Domain < results[j].Domain })
	return results
}

// crawlDomain fetches every entry URL for a domain, then expands through
// discovery and the hidden scanner under a shared soft deadline. The domain
// succeeds if any entry URL succeeds.
func (r *Runner) crawlDomain(ctx context.Context, job domainJob) stock.DomainResult {
	start := time.Now()
	dctx := softDeadline(ctx, start.Add(r.cfg.DomainBudget()))

	agg := aggregate.New(job.domain)
	var (
		fetchErrs []string
		anyOK     bool
		baseURL   string
		baseBody  string
		seedLinks []string
		seedYield int
	)

	for _, u := range job.urls {
		page, err := r.fetcher.Fetch(dctx, u, stock.FetchOptions{AllowSolver: true})
		if err != nil {
			fetchErrs = append(fetchErrs, err.Error())
			continue
		}
		anyOK = true

		res := r.registry.ForDomain(job.domain).Normalize(page)
		for _, c := range res.Candidates {
			if c.PurchaseURL == "" {
				c.PurchaseURL = page.FinalURL
			}
			agg.Add(c, false)
			seedYield++
		}
		seedLinks = append(seedLinks, res.Links...)
		if baseURL == "" {
			baseURL = u
			baseBody = page.Body
		}
	}

	if !anyOK {
		r.log.Warn("domain unreachable",
			zap.String("domain", job.domain),
			zap.Strings("errors", fetchErrs))
		return stock.DomainResult{
			Domain:  job.domain,
			OK:      false,
			Err:     strings.Join(fetchErrs, "; "),
			Elapsed: time.Since(start),
		}
	}

	if job.expand {
		var (
			wg         sync.WaitGroup
			discovered []parser.Candidate
			probed     []parser.Candidate
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			discovered, _ = r.discover.Run(dctx, job.domain, baseURL, seedLinks, seedYield)
		}()
		go func() {
			defer wg.Done()
			probed = r.hidden.Run(dctx, job.domain, baseBody)
		}()
		wg.Wait()

		for _, c := range discovered {
			agg.Add(c, false)
		}
		// A probe hit that a catalog path already found is not hidden.
		for _, c := range probed {
			agg.Add(c, !agg.Has(c))
		}
	}

	return stock.DomainResult{
		Domain:   job.domain,
		OK:       true,
		Elapsed:  time.Since(start),
		Listings: agg.Listings(),
	}
}
