// Package hiddenscan sweeps numeric product-id spaces to find listings that
// no catalog page links to.
package hiddenscan

import (
	"context"
	"hash/fnv"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/txyyddss/actions-stock-monitor/internal/config"
	"github.com/txyyddss/actions-stock-monitor/internal/metrics"
	"github.com/txyyddss/actions-stock-monitor/internal/parser"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// Scanner probes direct purchase endpoints on a recognized storefront
// platform. Every budget is independent: the sweep stops at the first
// exhausted one.
type Scanner struct {
	fetcher  stock.Fetcher
	registry *parser.Registry
	cfg      config.HiddenConfig
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(fetcher stock.Fetcher, registry *parser.Registry, cfg config.HiddenConfig, log *zap.Logger, m *metrics.Metrics) *Scanner {
	return &Scanner{fetcher: fetcher, registry: registry, cfg: cfg, log: log, metrics: m}
}

// Run sweeps the domain's id spaces. baseBody is the already-fetched primary
// page used for platform detection. The group axis runs first so the ids it
// reveals are probed explicitly on the primary axis.
func (s *Scanner) Run(ctx context.Context, domain, baseBody string) []parser.Candidate {
	if !s.cfg.Enabled {
		return nil
	}
	axes := detectAxes(baseBody)
	if len(axes) == 0 {
		s.log.Debug("no recognized platform, skipping hidden scan", zap.String("domain", domain))
		return nil
	}

	// The wall-clock cap is cooperative: checked between batches, never
	// preempting an in-flight probe.
	deadline := time.Time{}
	if s.cfg.MaxDurationSeconds > 0 {
		deadline = time.Now().Add(time.Duration(s.cfg.MaxDurationSeconds) * time.Second)
	}

	primary, group := axes[0], axes[1]

	var candidates []parser.Candidate
	extracted := s.sweepAxis(ctx, domain, group, primary, nil, deadline, &candidates)
	s.sweepAxis(ctx, domain, primary, primary, extracted, deadline, &candidates)

	s.log.Info("hidden scan finished",
		zap.String("domain", domain),
		zap.Int("candidates", len(candidates)))
	return candidates
}

type probe struct {
	id   int
	url  string
	page stock.Page
	err  error
}

// sweepAxis walks one id space: explicit ids first, then an ascending cursor.
// Results are applied in ascending id order so streak counters are
// deterministic. Returns primary ids extracted from group pages.
func (s *Scanner) sweepAxis(ctx context.Context, domain string, ax, primary axis, explicit []int, deadline time.Time, candidates *[]parser.Candidate) []int {
	p := s.registry.ForDomain(domain)

	dupLimit := s.cfg.StopAfterDuplicates
	if ax.sameLimit > 0 && ax.sameLimit < dupLimit {
		dupLimit = ax.sameLimit
	}

	queued := make(map[int]bool)
	var pending []int
	for _, id := range explicit {
		if id > 0 && !queued[id] {
			queued[id] = true
			pending = append(pending, id)
		}
	}
	sort.Ints(pending)

	var (
		cursor       int // id spaces start at 0 on both platforms
		noInfo       int
		noProgress   int
		dups         int
		redirs       int
		lastRedirect string
		extracted    []int
		seenSig      = make(map[uint64]bool)
	)

	for {
		if ctx.Err() != nil {
			return extracted
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			s.log.Debug("hidden sweep out of time",
				zap.String("domain", domain), zap.String("axis", ax.name))
			return extracted
		}
		if noInfo >= s.cfg.StopAfterNoInfo ||
			noProgress >= s.cfg.StopAfterNoProgress ||
			dups >= dupLimit ||
			redirs >= s.cfg.StopAfterRedirects {
			s.log.Debug("hidden sweep stopped",
				zap.String("domain", domain), zap.String("axis", ax.name),
				zap.Int("no_info", noInfo), zap.Int("no_progress", noProgress),
				zap.Int("duplicates", dups), zap.Int("redirects", redirs))
			return extracted
		}

		var batch []int
		for len(batch) < s.cfg.BatchSize && len(pending) > 0 {
			batch = append(batch, pending[0])
			pending = pending[1:]
		}
		for len(batch) < s.cfg.BatchSize && cursor <= s.cfg.HardMaxID {
			if !queued[cursor] {
				queued[cursor] = true
				batch = append(batch, cursor)
			}
			cursor++
		}
		if len(batch) == 0 {
			return extracted
		}
		sort.Ints(batch)

		results := s.fetchBatch(ctx, domain, ax, batch)

		for _, r := range results {
			if noInfo >= s.cfg.StopAfterNoInfo ||
				noProgress >= s.cfg.StopAfterNoProgress ||
				dups >= dupLimit ||
				redirs >= s.cfg.StopAfterRedirects {
				break
			}
			if r.err != nil || r.page.Status >= 400 {
				s.countProbe("no_info")
				noInfo++
				noProgress++
				continue
			}

			// Only a run of probes bouncing to the same destination counts
			// as a redirect streak. A storefront that redirects each id to
			// its own page is making progress, not stonewalling.
			if target, away := redirectTarget(r.url, r.page.FinalURL); away {
				if target == lastRedirect {
					redirs++
				} else {
					lastRedirect = target
					redirs = 1
				}
			} else {
				lastRedirect = ""
				redirs = 0
			}

			sig := contentSignature(r.page.Body)
			if seenSig[sig] {
				s.countProbe("duplicate")
				dups++
				noProgress++
				continue
			}
			seenSig[sig] = true
			dups = 0

			progressed := false
			if ax.group {
				for _, id := range extractPrimaryIDs(r.page.Body, primary) {
					extracted = append(extracted, id)
					progressed = true
				}
			}
			res := p.Normalize(r.page)
			for _, c := range res.Candidates {
				if c.PurchaseURL == "" {
					c.PurchaseURL = r.url
				}
				*candidates = append(*candidates, c)
				progressed = true
			}

			// A page that yields nothing is as uninformative as a hard
			// error, whatever its status code.
			if progressed {
				s.countProbe("info")
				noInfo = 0
				noProgress = 0
			} else {
				s.countProbe("empty")
				noInfo++
				noProgress++
			}
		}
	}
}

// fetchBatch probes a batch concurrently, results returned in batch order.
func (s *Scanner) fetchBatch(ctx context.Context, domain string, ax axis, ids []int) []probe {
	results := make([]probe, len(ids))
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			u := ax.probeURL(domain, id)
			page, err := s.fetcher.Fetch(ctx, u, stock.FetchOptions{AllowSolver: false})
			results[i] = probe{id: id, url: u, page: page, err: err}
		}(i, id)
	}
	wg.Wait()
	return results
}

func (s *Scanner) countProbe(result string) {
	if s.metrics != nil {
		s.metrics.HiddenProbes.WithLabelValues(result).Inc()
	}
}

// redirectTarget reports whether the probe landed on a different path, the
// usual sign of an invalid id bouncing to the storefront home, and returns
// the destination stripped of its query so streaks compare stable targets.
func redirectTarget(probeURL, finalURL string) (string, bool) {
	if finalURL == "" || finalURL == probeURL {
		return "", false
	}
	a, err := url.Parse(probeURL)
	if err != nil {
		return "", false
	}
	b, err := url.Parse(finalURL)
	if err != nil {
		return finalURL, true
	}
	if a.Host == b.Host && a.Path == b.Path {
		return "", false
	}
	return b.Scheme + "://" + b.Host + b.Path, true
}

var sigSpace = strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "")

// contentSignature hashes whitespace-stripped content so cosmetic reflows of
// the same page still collide.
func contentSignature(body string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sigSpace.Replace(body)))
	return h.Sum64()
}
