package crawler

import "testing"

// TestScopeAllows tests link filtering.
func TestScopeAllows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		seed string
		opts []ScopeOption
		link string
		want bool
	}{
		{name: "same host", seed: "https://example.com", link: "https://example.com/about", want: true},
		{name: "subdomain of same site", seed: "https://www.example.com", link: "https://blog.example.com/post", want: true},
		{name: "scheme change on same site", seed: "https://example.com", link: "http://example.com/", want: true},
		{name: "other site", seed: "https://example.com", link: "https://other.com/", want: false},
		{name: "sibling under public suffix", seed: "https://example.co.uk", link: "https://other.co.uk/", want: false},
		{name: "other site with external links", seed: "https://example.com", opts: []ScopeOption{WithExternalLinks(true)}, link: "https://other.com/", want: true},
		{name: "non-web scheme", seed: "https://example.com", link: "javascript:void(0)", want: false},
		{name: "mailto", seed: "https://example.com", link: "mailto:someone@example.com", want: false},
		{name: "localhost with port", seed: "http://localhost:8080/", link: "http://localhost:8080/a", want: true},
		{name: "ip address", seed: "http://127.0.0.1:8080/", link: "http://127.0.0.1:9090/a", want: true},
		{name: "ignored path", seed: "https://example.com", opts: []ScopeOption{WithIgnorePatterns([]string{"/admin/*"})}, link: "https://example.com/admin/users", want: false},
		{name: "ignored extension", seed: "https://example.com", opts: []ScopeOption{WithIgnorePatterns([]string{"*.pdf"})}, link: "https://example.com/docs/guide.pdf", want: false},
		{name: "pattern does not match", seed: "https://example.com", opts: []ScopeOption{WithIgnorePatterns([]string{"/admin/*"})}, link: "https://example.com/administrator", want: true},
		{name: "unparsable seed allows nothing", seed: "mailto:x", link: "https://example.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewScope(tt.seed, tt.opts...)
			if got := s.Allows(tt.link); got != tt.want {
				t.Errorf("Allows(%q) with seed %q = %v, want %v", tt.link, tt.seed, got, tt.want)
			}
		})
	}
}

// TestMatchPattern tests glob matching of URL paths.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/*", "/admin", true},
		{"/admin/*", "/admin/users/1", true},
		{"/admin/*", "/administrator", false},
		{"*.pdf", "/docs/file.pdf", true},
		{"*.pdf", "/docs/file.html", false},
		{"/api/v?", "/api/v1", true},
		{"/api/v?", "/api/v10", false},
		{"[", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}
