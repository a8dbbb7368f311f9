// Package aggregate resolves raw parser candidates into deduplicated
// listings for one domain.
package aggregate

import (
	"sort"
	"strings"

	"github.com/txyyddss/actions-stock-monitor/internal/parser"
	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// Aggregator folds candidates from direct parsing, discovery, and hidden
// scanning into one listing per purchase URL and location.
type Aggregator struct {
	domain string
	byID   map[string]*stock.Listing
}

func New(domain string) *Aggregator {
	return &Aggregator{domain: strings.ToLower(domain), byID: make(map[string]*stock.Listing)}
}

// Add merges a candidate into the set. Candidates with the same listing id
// enrich each other; the most severe explicit status wins and an explicit
// status is never downgraded to unknown.
func (a *Aggregator) Add(c parser.Candidate, hidden bool) {
	if c.PurchaseURL == "" {
		return
	}
	if isNoise(c) {
		return
	}

	id := stock.ListingID(a.domain, c.PurchaseURL, c.Location)
	l, ok := a.byID[id]
	if !ok {
		l = &stock.Listing{
			ID:          id,
			Domain:      a.domain,
			Status:      stock.StatusUnknown,
			PurchaseURL: stock.CanonicalURL(c.PurchaseURL),
		}
		a.byID[id] = l
	}

	if betterTitle(c.Title, l.Title) {
		l.Title = c.Title
	}
	if c.StatusHint.Rank() > l.Status.Rank() {
		l.Status = c.StatusHint
	}
	if l.Price.Amount == "" && c.Price.Amount != "" {
		l.Price = c.Price
	}
	if c.Location != "" {
		if !containsString(l.Locations, c.Location) {
			l.Locations = append(l.Locations, c.Location)
			sort.Strings(l.Locations)
		}
		if l.LocationLinks == nil {
			l.LocationLinks = make(map[string]string)
		}
		if _, dup := l.LocationLinks[c.Location]; !dup {
			l.LocationLinks[c.Location] = stock.CanonicalURL(c.PurchaseURL)
		}
	}
	if len(c.Specs) > 0 {
		if l.Specs == nil {
			l.Specs = make(map[string]string, len(c.Specs))
		}
		for k, v := range c.Specs {
			if _, dup := l.Specs[k]; !dup {
				l.Specs[k] = v
			}
		}
	}
	if hidden {
		l.Hidden = true
	}
}

// Has reports whether a candidate would merge into an already-known listing.
// Used to mark probe-discovered listings hidden only when no catalog path
// reached them.
func (a *Aggregator) Has(c parser.Candidate) bool {
	if c.PurchaseURL == "" {
		return false
	}
	_, ok := a.byID[stock.ListingID(a.domain, c.PurchaseURL, c.Location)]
	return ok
}

// Listings returns the merged set ordered by id.
func (a *Aggregator) Listings() []stock.Listing {
	out := make([]stock.Listing, 0, len(a.byID))
	for _, id := range stock.SortedKeys(a.byID) {
		out = append(out, *a.byID[id])
	}
	return out
}

// isNoise drops candidates that carry no product signal at all.
func isNoise(c parser.Candidate) bool {
	if c.Title == "" && c.Price.Amount == "" && c.StatusHint == stock.StatusUnknown {
		return true
	}
	// Page chrome picked up by broad selectors.
	t := strings.ToLower(c.Title)
	for _, junk := range []string{"cookie", "newsletter", "sign in", "sign up", "404"} {
		if strings.Contains(t, junk) {
			return true
		}
	}
	return false
}

// betterTitle prefers a present, reasonably sized, more specific title.
func betterTitle(candidate, current string) bool {
	if candidate == "" {
		return false
	}
	if len(candidate) > 200 {
		return false
	}
	if current == "" {
		return true
	}
	return len(candidate) > len(current)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
