// Package parser normalizes fetched pages into listing candidates and
// discovery links. Per-site extraction rules plug in through the registry;
// core logic never branches on domain names.
package parser

import (
	"strings"
	"sync"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// Candidate is one potential listing extracted from a page. Fields are raw
// hints; the aggregator resolves them into a Listing.
type Candidate struct {
	Title       string
	SpecText    string
	Specs       map[string]string
	StatusHint  stock.Status
	Price       stock.Price
	PurchaseURL string
	Location    string
}

// Result is the output of normalizing one page.
type Result struct {
	Candidates []Candidate
	Links      []string
}

// Parser turns a fetched page into candidates and in-domain links.
type Parser interface {
	Normalize(page stock.Page) Result
}

// Registry maps domains to parser implementations with a generic fallback.
type Registry struct {
	mu       sync.RWMutex
	byDomain map[string]Parser
	fallback Parser
}

// NewRegistry creates a registry whose fallback is the generic parser.
func NewRegistry() *Registry {
	return &Registry{
		byDomain: make(map[string]Parser),
		fallback: NewGeneric(),
	}
}

// Register binds a parser to a domain (exact match, or any subdomain of it).
func (r *Registry) Register(domain string, p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDomain[strings.ToLower(domain)] = p
}

// ForDomain resolves the parser for a domain: exact match first, then parent
// domain suffix, then the generic fallback.
func (r *Registry) ForDomain(domain string) Parser {
	domain = strings.ToLower(domain)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byDomain[domain]; ok {
		return p
	}
	for registered, p := range r.byDomain {
		if strings.HasSuffix(domain, "."+registered) {
			return p
		}
	}
	return r.fallback
}
