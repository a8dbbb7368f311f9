package state

import (
	"sort"
	"time"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// DiffOptions controls pruning and staleness for one diff.
type DiffOptions struct {
	// FullMode enables removed-listing pruning; lite runs never prune.
	FullMode bool
	// ExplicitTargets marks a run scoped to user-chosen URLs, which also
	// disables pruning since absent listings were simply not visited.
	ExplicitTargets bool
	// StaleAfter is the scheduling interval; listings last seen longer ago
	// than this are flagged stale.
	StaleAfter time.Duration
}

// Summary aggregates one diff for logging.
type Summary struct {
	DomainsOK     int
	DomainsFailed int
	Listings      int
	Pruned        int
	NewProducts   int
	Restocks      int
	NewLocations  int
}

// Diff folds the current run's per-domain results into the prior snapshot.
// It is a pure function of its inputs: no clock reads, no I/O, and a
// deterministic event order, so a dry run and a live run produce identical
// snapshots.
func Diff(prior Snapshot, results []stock.DomainResult, now time.Time, opts DiffOptions) (Snapshot, []stock.Event, Summary) {
	next := NewSnapshot()
	next.UpdatedAt = now
	for id, l := range prior.Listings {
		next.Listings[id] = l
	}
	for d, h := range prior.Domains {
		next.Domains[d] = h
	}

	var events []stock.Event
	var sum Summary

	for _, res := range results {
		next.Domains[res.Domain] = domainHealth(prior.Domains[res.Domain], res, now)
		if !res.OK {
			sum.DomainsFailed++
			continue
		}
		sum.DomainsOK++

		seen := make(map[string]bool, len(res.Listings))
		for _, cur := range res.Listings {
			seen[cur.ID] = true
			old, existed := next.Listings[cur.ID]
			merged := mergeListing(old, cur, existed, now)
			next.Listings[cur.ID] = merged

			switch {
			case !existed:
				// Only available products are announced; out_of_stock and
				// unknown discoveries are recorded silently and notify
				// later as a restock.
				if merged.Status == stock.StatusInStock {
					events = append(events, stock.Event{Kind: stock.EventNewProduct, Listing: merged, DetectedAt: now})
					sum.NewProducts++
				}
			case merged.Status == stock.StatusInStock && old.Status != stock.StatusInStock:
				events = append(events, stock.Event{Kind: stock.EventRestock, Listing: merged, DetectedAt: now})
				sum.Restocks++
			case merged.Status == stock.StatusInStock && old.Status == stock.StatusInStock && gainedLocation(old.Locations, merged.Locations):
				events = append(events, stock.Event{Kind: stock.EventNewLocation, Listing: merged, DetectedAt: now})
				sum.NewLocations++
			}
		}

		if opts.FullMode && !opts.ExplicitTargets {
			for id, l := range prior.Listings {
				if l.Domain != res.Domain || seen[id] {
					continue
				}
				if l.Hidden {
					continue
				}
				delete(next.Listings, id)
				sum.Pruned++
			}
		}
	}

	if opts.StaleAfter > 0 {
		for id, l := range next.Listings {
			l.Stale = now.Sub(l.LastSeen) > opts.StaleAfter
			next.Listings[id] = l
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Listing.ID != events[j].Listing.ID {
			return events[i].Listing.ID < events[j].Listing.ID
		}
		return events[i].Kind < events[j].Kind
	})

	sum.Listings = len(next.Listings)

	mode := "lite"
	if opts.FullMode {
		mode = "full"
	}
	next.LastRun = &RunInfo{
		At:            now,
		Mode:          mode,
		DomainsOK:     sum.DomainsOK,
		DomainsFailed: sum.DomainsFailed,
		Listings:      sum.Listings,
		NewProducts:   sum.NewProducts,
		Restocks:      sum.Restocks,
		NewLocations:  sum.NewLocations,
		Pruned:        sum.Pruned,
	}
	return next, events, sum
}

// mergeListing applies the current observation over the stored record. The
// observation is authoritative for status; descriptive fields only improve,
// never blank out.
func mergeListing(old, cur stock.Listing, existed bool, now time.Time) stock.Listing {
	if !existed {
		cur.FirstSeen = now
		cur.LastSeen = now
		cur.LastChange = now
		return cur
	}

	m := cur
	m.FirstSeen = old.FirstSeen
	m.LastSeen = now
	m.LastChange = old.LastChange
	if m.Status != old.Status {
		m.LastChange = now
	}
	if m.Title == "" {
		m.Title = old.Title
	}
	if m.Price.IsZero() {
		m.Price = old.Price
	}
	if len(m.Specs) == 0 {
		m.Specs = old.Specs
	}
	if len(m.Locations) == 0 {
		m.Locations = old.Locations
	}
	if len(m.LocationLinks) == 0 {
		m.LocationLinks = old.LocationLinks
	}
	return m
}

func gainedLocation(old, cur []string) bool {
	prior := make(map[string]bool, len(old))
	for _, l := range old {
		prior[l] = true
	}
	for _, l := range cur {
		if !prior[l] {
			return true
		}
	}
	return false
}

func domainHealth(old stock.DomainHealth, res stock.DomainResult, now time.Time) stock.DomainHealth {
	h := stock.DomainHealth{
		Domain:        res.Domain,
		Latency:       res.Elapsed,
		LastSuccessAt: old.LastSuccessAt,
	}
	if res.OK {
		h.LastStatus = stock.HealthOK
		h.LastSuccessAt = now
		return h
	}
	h.LastStatus = stock.HealthError
	h.ErrorCount = old.ErrorCount + 1
	h.LastError = res.Err
	return h
}
