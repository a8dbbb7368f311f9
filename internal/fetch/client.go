// Package fetch implements the resilient page gateway: direct requests
// first, classified failures, and challenge-solver fallback with a
// per-domain clearance cookie cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/txyyddss/actions-stock-monitor/internal/metrics"
	"github.com/txyyddss/actions-stock-monitor/internal/retry"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// Config tunes a gateway Client.
type Config struct {
	Timeout    time.Duration
	ProxyURL   string
	SolverURL  string
	CookieTTL  time.Duration
	UserAgents []string
	Retry      *retry.Policy
}

// Client is the fetch gateway shared by all crawl paths of a run.
type Client struct {
	http    *resty.Client
	solver  *Solver
	cache   *sessionCache
	retry   *retry.Policy
	uas     []string
	clock   stock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics

	uaMu      sync.Mutex
	domainUAs map[string]string
}

// New builds a gateway Client.
func New(cfg Config, clock stock.Clock, log *zap.Logger, m *metrics.Metrics) *Client {
	hc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetRetryCount(0)
	if cfg.ProxyURL != "" {
		hc.SetProxy(cfg.ProxyURL)
	}
	uas := cfg.UserAgents
	if len(uas) == 0 {
		uas = defaultUserAgents
	}
	pol := cfg.Retry
	if pol == nil {
		pol = retry.New(3, 250*time.Millisecond, 2500*time.Millisecond, func(err error) bool {
			var fe *stock.FetchError
			if errors.As(err, &fe) {
				return fe.Retryable()
			}
			return true
		})
	}
	return &Client{
		http:      hc,
		solver:    NewSolver(cfg.SolverURL, cfg.Timeout),
		cache:     newSessionCache(cfg.CookieTTL),
		retry:     pol,
		uas:       uas,
		clock:     clock,
		log:       log,
		metrics:   m,
		domainUAs: make(map[string]string),
	}
}

// userAgentFor picks one UA per domain and keeps it for the whole run;
// per-request UA churn trips anti-bot heuristics more often than it helps.
func (c *Client) userAgentFor(domain string) string {
	c.uaMu.Lock()
	defer c.uaMu.Unlock()
	if ua, ok := c.domainUAs[domain]; ok {
		return ua
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(domain))
	ua := c.uas[int(h.Sum32())%len(c.uas)]
	c.domainUAs[domain] = ua
	return ua
}

// Fetch performs one gateway fetch. Transient failures are retried with
// backoff; challenge pages escalate to the solver only when opts.AllowSolver
// is set and a solver is configured.
func (c *Client) Fetch(ctx context.Context, url string, opts stock.FetchOptions) (stock.Page, error) {
	domain := stock.DomainOf(url)
	started := c.clock.Now()

	var page stock.Page
	err := c.retry.Do(ctx, func() error {
		p, ferr := c.fetchDirect(ctx, url, domain)
		if ferr == nil {
			page = p
			return nil
		}
		var fe *stock.FetchError
		if errors.As(ferr, &fe) && fe.Kind == stock.KindChallenge {
			if !opts.AllowSolver || c.solver == nil {
				return ferr
			}
			solved, serr := c.solve(ctx, url, domain)
			if serr != nil {
				c.log.Warn("challenge solver failed", zap.String("domain", domain), zap.Error(serr))
				return &stock.FetchError{Kind: stock.KindChallenge, URL: url, Err: serr}
			}
			page = solved
			return nil
		}
		return ferr
	})
	if err != nil {
		c.countOutcome(err)
		return stock.Page{}, err
	}

	page.Elapsed = c.clock.Now().Sub(started)
	if c.metrics != nil {
		c.metrics.Fetches.WithLabelValues(string(OutcomeOK)).Inc()
	}
	return page, nil
}

func (c *Client) countOutcome(err error) {
	if c.metrics == nil {
		return
	}
	var fe *stock.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case stock.KindChallenge:
			c.metrics.Fetches.WithLabelValues(string(OutcomeChallenge)).Inc()
		case stock.KindPermanent:
			c.metrics.Fetches.WithLabelValues(string(OutcomePermanent)).Inc()
		default:
			c.metrics.Fetches.WithLabelValues(string(OutcomeTransient)).Inc()
		}
		return
	}
	c.metrics.Fetches.WithLabelValues(string(OutcomeTransient)).Inc()
}

func (c *Client) fetchDirect(ctx context.Context, url, domain string) (stock.Page, error) {
	cookies, cachedUA, _ := c.cache.get(domain, c.clock.Now())
	ua := cachedUA
	if ua == "" {
		ua = c.userAgentFor(domain)
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetHeader("Cache-Control", "no-cache")
	for name, value := range cookies {
		req.SetCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := req.Get(url)
	if err != nil {
		return stock.Page{}, &stock.FetchError{Kind: stock.KindTransient, URL: url, Err: err}
	}

	status := resp.StatusCode()
	body := resp.String()
	finalURL := url
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	switch Classify(status, body) {
	case OutcomeOK:
		return stock.Page{URL: url, FinalURL: finalURL, Status: status, Body: body, Cookies: cookies}, nil
	case OutcomeChallenge:
		return stock.Page{}, &stock.FetchError{Kind: stock.KindChallenge, URL: url, Status: status}
	case OutcomeTransient:
		return stock.Page{}, &stock.FetchError{Kind: stock.KindTransient, URL: url, Status: status}
	default:
		return stock.Page{}, &stock.FetchError{Kind: stock.KindPermanent, URL: url, Status: status}
	}
}

func (c *Client) solve(ctx context.Context, url, domain string) (stock.Page, error) {
	if c.metrics != nil {
		c.metrics.SolverCalls.Inc()
	}
	solved, err := c.solver.Solve(ctx, url)
	if err != nil {
		return stock.Page{}, fmt.Errorf("solve %s: %w", url, err)
	}

	cacheDomain := stock.DomainOf(solved.FinalURL)
	if cacheDomain == "" {
		cacheDomain = domain
	}
	c.cache.put(cacheDomain, solved.Cookies, solved.UserAgent, c.clock.Now())
	c.log.Debug("challenge solved",
		zap.String("domain", cacheDomain),
		zap.Int("status", solved.Status),
		zap.Int("cookies", len(solved.Cookies)),
	)

	return stock.Page{
		URL:      url,
		FinalURL: solved.FinalURL,
		Status:   solved.Status,
		Body:     solved.Body,
		Cookies:  solved.Cookies,
		Solved:   true,
	}, nil
}
