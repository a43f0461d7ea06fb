// Package urlnorm reduces social-media post URLs to a stable cache key.
//
// Share links append ephemeral tracking parameters (e.g. ?igsh=... on
// Instagram), so using the raw URL as a cache key would create a unique
// key per share and defeat caching entirely. Normalize keeps only
// scheme://host/path.
package urlnorm

import "net/url"

// Normalize returns the URL reduced to scheme://host/path, discarding
// the query string and fragment. The result is idempotent:
// Normalize(Normalize(u)) == Normalize(u).
//
// Normalization is an optimization, not a correctness requirement, so it
// fails open: inputs that do not parse, or that lack a scheme or host,
// are returned unchanged.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}
