package stock

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// DomainOf extracts the lowercased host from a URL, or "" if unparseable.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// NormalizeURL standardizes a URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports and fragments,
// strips trailing slashes from the path, and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	q := u.Query()
	// Tracking parameters churn between observations of the same product.
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// CanonicalURL returns the normalized form of a URL, falling back to the
// trimmed input when it cannot be parsed. Callers that need to distinguish
// the failure use NormalizeURL directly.
func CanonicalURL(rawURL string) string {
	canonical, err := NormalizeURL(rawURL)
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	return canonical
}

// ListingID derives the stable identity of a listing from its canonical
// purchase URL plus an optional location/variant suffix. The same product
// observed via different crawl paths always maps to the same id.
func ListingID(domain, purchaseURL, location string) string {
	id := strings.ToLower(domain) + "::" + CanonicalURL(purchaseURL)
	loc := strings.TrimSpace(location)
	if loc != "" {
		id += "#" + slugify(loc)
	}
	return id
}

func slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.', r == '/':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// SortedKeys returns map keys in deterministic order; the diff engine and
// notifier rely on this for reproducible output.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
