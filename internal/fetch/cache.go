package fetch

import (
	"sync"
	"time"
)

// session is one domain's solved clearance context. Any valid solved cookie
// set is usable, so concurrent solver successes overwrite each other
// last-write-wins; the mutex only protects the map itself.
type session struct {
	cookies   map[string]string
	userAgent string
	expiresAt time.Time
}

type sessionCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]session
}

func newSessionCache(ttl time.Duration) *sessionCache {
	return &sessionCache{
		ttl:      ttl,
		sessions: make(map[string]session),
	}
}

// get returns the cached clearance cookies and UA for a domain, expiring
// stale entries on read.
func (c *sessionCache) get(domain string, now time.Time) (map[string]string, string, bool) {
	if domain == "" {
		return nil, "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[domain]
	if !ok {
		return nil, "", false
	}
	if !s.expiresAt.After(now) {
		delete(c.sessions, domain)
		return nil, "", false
	}
	return s.cookies, s.userAgent, true
}

// put stores a solved clearance context for a domain.
func (c *sessionCache) put(domain string, cookies map[string]string, userAgent string, now time.Time) {
	if domain == "" || len(cookies) == 0 || c.ttl <= 0 {
		return
	}
	copied := make(map[string]string, len(cookies))
	for k, v := range cookies {
		copied[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[domain] = session{
		cookies:   copied,
		userAgent: userAgent,
		expiresAt: now.Add(c.ttl),
	}
}
