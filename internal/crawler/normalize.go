package crawler

import (
	"regexp"
	"strings"
)

var (
	// schemePrefix matches one or more leading http:// or https:// prefixes.
	schemePrefix = regexp.MustCompile(`(?i)^(?:https?://)+`)

	// trailingNoise matches the end of a URL made of slashes, simple
	// fragments (#name) and a query string.
	trailingNoise = regexp.MustCompile(`(?:/|#[A-Za-z0-9-]*)*(?:\?.*)?$`)

	// ineligiblePrefix matches addresses that cannot be fetched or audited.
	ineligiblePrefix = regexp.MustCompile(`(?i)^(?:mailto:|tel:|#)`)
)

// Normalize converts a URL into the key used to deduplicate pages.
//
// The scheme, trailing slash, fragment and query string are removed, so
// "https://a.com/", "http://a.com#top" and "HTTP://a.com/?q=1" all become
// "a.com". Any string is accepted. Normalize(Normalize(u)) == Normalize(u).
func Normalize(rawURL string) string {
	key := schemePrefix.ReplaceAllString(rawURL, "")
	return trailingNoise.ReplaceAllString(key, "")
}

// IsIneligible reports whether the URL is a mailto: or tel: link or a bare
// fragment. Such URLs are never registered.
func IsIneligible(rawURL string) bool {
	return ineligiblePrefix.MatchString(strings.TrimSpace(rawURL))
}
