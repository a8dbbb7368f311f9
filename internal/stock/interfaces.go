package stock

import (
	"context"
	"time"
)

// FetchOptions tunes a single gateway fetch.
type FetchOptions struct {
	// AllowSolver permits escalation to the challenge solver. Only primary
	// listing entry points should set it; detail pages reuse cached
	// clearance cookies to bound solver call volume.
	AllowSolver bool
}

// Fetcher fetches a URL and returns the page plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (Page, error)
}

// Notifier dispatches one message per state-transition event.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
