package config

import (
	"maps"
	"net/url"
	"strings"
)

// SiteConfig holds the configuration for a single site.
type SiteConfig struct {
	// MaxPages overrides the global page limit.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Parallelism overrides the global fetch concurrency.
	Parallelism int `yaml:"parallelism,omitempty"`

	// UserAgent overrides the User-Agent header sent while crawling.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is an HTTP cookie sent while crawling and auditing.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent while crawling and auditing.
	Headers map[string]string `yaml:"headers,omitempty"`

	// External follows links to other sites when true.
	External *bool `yaml:"external,omitempty"`

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// ChromeFlags are passed to Lighthouse through --chrome-flags.
	ChromeFlags string `yaml:"chromeFlags,omitempty"`

	// LighthouseArgs are extra command line arguments for Lighthouse.
	LighthouseArgs []string `yaml:"lighthouseArgs,omitempty"`

	// Category is the report category whose score is averaged.
	Category string `yaml:"category,omitempty"`
}

// RequestHeaders returns Headers with Cookie folded in as a Cookie header.
func (s SiteConfig) RequestHeaders() map[string]string {
	if len(s.Headers) == 0 && s.Cookie == "" {
		return nil
	}
	headers := make(map[string]string, len(s.Headers)+1)
	maps.Copy(headers, s.Headers)
	if s.Cookie != "" {
		headers["Cookie"] = s.Cookie
	}
	return headers
}

// File represents the structure of the .sitescore configuration file.
type File struct {
	// Save stores every finished run in the history database.
	Save bool `yaml:"save,omitempty"`

	// DBDir overrides the directory of the history database.
	DBDir string `yaml:"dbDir,omitempty"`

	// Defaults applies to all sites unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps host names (e.g. "example.com") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the configuration for a site merged with the defaults.
// target may be a host name or a URL.
func (cf *File) GetSiteConfig(target string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	site, ok := cf.Sites[target]
	if !ok {
		site, ok = cf.Sites[hostOf(target)]
	}
	if !ok {
		return cf.Defaults
	}
	return MergeSiteConfig(cf.Defaults, site)
}

// MergeSiteConfig merges default config with site-specific overrides.
func MergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults

	if override.MaxPages > 0 {
		result.MaxPages = override.MaxPages
	}
	if override.Parallelism > 0 {
		result.Parallelism = override.Parallelism
	}
	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		merged := make(map[string]string, len(defaults.Headers)+len(override.Headers))
		maps.Copy(merged, defaults.Headers)
		maps.Copy(merged, override.Headers)
		result.Headers = merged
	}
	if override.External != nil {
		result.External = override.External
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if override.ChromeFlags != "" {
		result.ChromeFlags = override.ChromeFlags
	}
	if len(override.LighthouseArgs) > 0 {
		result.LighthouseArgs = override.LighthouseArgs
	}
	if override.Category != "" {
		result.Category = override.Category
	}

	return result
}

// hostOf returns the lower-cased host of a URL, or the input if it has none.
func hostOf(target string) string {
	raw := target
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return target
	}
	return strings.ToLower(u.Hostname())
}
