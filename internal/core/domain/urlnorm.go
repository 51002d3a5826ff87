package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Tracker query keys removed during canonicalization, in addition to any key
// prefixed "utm_".
var trackingParams = map[string]struct{}{
	"gclid":  {},
	"fbclid": {},
	"yclid":  {},
	"mc_cid": {},
	"mc_eid": {},
}

// CanonicalizeURL normalizes a raw URL for deduplication and caching:
// lower-cased scheme and host, tracking parameters stripped, remaining query
// re-encoded in sorted key order, fragment dropped, trailing slash removed.
// The operation is idempotent. Returns the canonical URL and its host.
func CanonicalizeURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("url %q has no scheme or host", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	query := u.Query()
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			delete(query, key)
			continue
		}
		if _, tracked := trackingParams[strings.ToLower(key)]; tracked {
			delete(query, key)
		}
	}
	// Encode sorts by key, which makes normalization order-insensitive.
	u.RawQuery = query.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), u.Host, nil
}
