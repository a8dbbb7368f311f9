// Package stock defines core types shared across subsystems.
package stock

import (
	"time"
)

// Status is the availability state of a listing.
type Status string

// Listing availability values persisted in the snapshot.
const (
	StatusInStock    Status = "in_stock"
	StatusOutOfStock Status = "out_of_stock"
	StatusUnknown    Status = "unknown"
)

// Rank orders statuses by signal strength: explicit signals beat unknown.
func (s Status) Rank() int {
	switch s {
	case StatusOutOfStock:
		return 2
	case StatusInStock:
		return 1
	default:
		return 0
	}
}

// Price captures a single displayed price.
type Price struct {
	Amount       string `json:"amount,omitempty"`
	Currency     string `json:"currency,omitempty"`
	BillingCycle string `json:"billing_cycle,omitempty"`
}

// IsZero reports whether no price information is present.
func (p Price) IsZero() bool {
	return p.Amount == "" && p.Currency == "" && p.BillingCycle == ""
}

// Listing is the persisted record for one tracked product.
type Listing struct {
	ID        string            `json:"id"`
	Domain    string            `json:"domain"`
	Title     string            `json:"title"`
	Status    Status            `json:"status"`
	Price     Price             `json:"price"`
	Specs     map[string]string `json:"specs,omitempty"`
	Locations []string          `json:"locations,omitempty"`
	// LocationLinks maps a location name to its own purchase URL when the
	// storefront sells the same plan per region.
	LocationLinks map[string]string `json:"location_links,omitempty"`
	PurchaseURL   string            `json:"purchase_url"`
	Hidden        bool              `json:"hidden,omitempty"`
	Stale         bool              `json:"stale,omitempty"`
	FirstSeen     time.Time         `json:"first_seen"`
	LastSeen      time.Time         `json:"last_seen"`
	LastChange    time.Time         `json:"last_change"`
}

// DomainHealth records the outcome of the most recent crawl of a domain.
type DomainHealth struct {
	Domain        string        `json:"domain"`
	LastStatus    string        `json:"last_status"`
	Latency       time.Duration `json:"latency_ms"`
	ErrorCount    int           `json:"error_count"`
	LastSuccessAt time.Time     `json:"last_success_at,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
}

// Domain health status values.
const (
	HealthOK    = "ok"
	HealthError = "error"
)

// EventKind classifies a state transition worth notifying about.
type EventKind string

// Notification event kinds produced by the diff engine.
const (
	EventNewProduct  EventKind = "NEW_PRODUCT"
	EventRestock     EventKind = "RESTOCK"
	EventNewLocation EventKind = "NEW_LOCATION"
)

// Event is one notification-worthy transition detected by the diff engine.
type Event struct {
	Kind       EventKind `json:"kind"`
	Listing    Listing   `json:"listing"`
	DetectedAt time.Time `json:"detected_at"`
}

// Page is the result of a successful gateway fetch.
type Page struct {
	URL      string
	FinalURL string
	Status   int
	Body     string
	Cookies  map[string]string
	Solved   bool
	Elapsed  time.Duration
}

// Domain returns the lowercased host the page was served from.
func (p Page) Domain() string {
	if d := DomainOf(p.FinalURL); d != "" {
		return d
	}
	return DomainOf(p.URL)
}

// DomainResult is the run-scoped outcome of crawling one domain.
type DomainResult struct {
	Domain   string
	OK       bool
	Err      string
	Elapsed  time.Duration
	Listings []Listing
}
