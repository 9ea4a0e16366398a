package crawler

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope decides which links found during a crawl are followed.
//
// By default only http(s) links on the same site as the seed are followed.
// Two hosts are on the same site when they share a registrable domain
// (eTLD+1), so "www.example.com" and "blog.example.com" match while
// "example.co.uk" and "other.co.uk" do not.
type Scope struct {
	site           string
	external       bool
	ignorePatterns []string
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithExternalLinks allows links to other sites to be followed.
func WithExternalLinks(allow bool) ScopeOption {
	return func(s *Scope) {
		s.external = allow
	}
}

// WithIgnorePatterns skips links whose path matches any of the glob
// patterns, e.g. "/admin/*" or "*.pdf".
func WithIgnorePatterns(patterns []string) ScopeOption {
	return func(s *Scope) {
		s.ignorePatterns = patterns
	}
}

// NewScope creates a scope anchored at the seed URL.
func NewScope(seed string, opts ...ScopeOption) *Scope {
	s := &Scope{site: siteOf(seed)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allows reports whether the link should be registered and fetched.
func (s *Scope) Allows(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !s.external && (s.site == "" || siteOf(link) != s.site) {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}
	return true
}

// siteOf returns the registrable domain of the URL's host.
// Hosts without a public suffix (localhost, intranet names) are returned as is.
func siteOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}

// matchPattern checks if a path matches a glob pattern.
//
// Examples:
//   - "/admin/*" matches "/admin", "/admin/users" and "/admin/users/1"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	return matched
}
