// Package retry implements the jittered backoff policy shared by the fetch
// and notify paths.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// Policy controls retry attempts with exponential, jittered backoff.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	retryable   func(error) bool
}

// New builds a policy. Attempts below 1 and non-positive delays fall back to
// defaults. The retryable predicate may be nil, in which case every non-nil
// error is retried.
func New(maxAttempts int, baseDelay, maxDelay time.Duration, retryable func(error) bool) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	return &Policy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		retryable:   retryable,
	}
}

// MaxAttempts returns the attempt ceiling.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

// ShouldRetry decides whether another attempt is warranted after err on the
// given zero-based attempt number.
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts-1 {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.retryable != nil {
		return p.retryable(err)
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

// Do runs fn until it succeeds, the policy gives up, or the context ends.
func (p *Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !p.ShouldRetry(err, attempt) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}
	return err
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
