package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionCacheRoundTrip(t *testing.T) {
	c := newSessionCache(time.Minute)
	now := time.Now()

	c.put("example.com", map[string]string{"cf_clearance": "abc"}, "solved-ua", now)

	cookies, ua, ok := c.get("example.com", now.Add(30*time.Second))
	require.True(t, ok)
	require.Equal(t, "abc", cookies["cf_clearance"])
	require.Equal(t, "solved-ua", ua)
}

func TestSessionCacheExpiry(t *testing.T) {
	c := newSessionCache(time.Minute)
	now := time.Now()

	c.put("example.com", map[string]string{"cf_clearance": "abc"}, "ua", now)

	_, _, ok := c.get("example.com", now.Add(2*time.Minute))
	require.False(t, ok)

	// Expired entries are dropped, not resurrected.
	_, _, ok = c.get("example.com", now)
	require.False(t, ok)
}

func TestSessionCacheLastWriteWins(t *testing.T) {
	c := newSessionCache(time.Minute)
	now := time.Now()

	c.put("example.com", map[string]string{"cf_clearance": "first"}, "ua1", now)
	c.put("example.com", map[string]string{"cf_clearance": "second"}, "ua2", now)

	cookies, ua, ok := c.get("example.com", now)
	require.True(t, ok)
	require.Equal(t, "second", cookies["cf_clearance"])
	require.Equal(t, "ua2", ua)
}

func TestSessionCacheIgnoresEmpty(t *testing.T) {
	c := newSessionCache(time.Minute)
	now := time.Now()

	c.put("example.com", nil, "ua", now)
	_, _, ok := c.get("example.com", now)
	require.False(t, ok)
}
