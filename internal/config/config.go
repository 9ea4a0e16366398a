package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitescore"

	// DefaultMaxPages is the number of pages a crawl registers at most.
	DefaultMaxPages = 10

	// DefaultParallelism is the number of pages fetched at the same time
	// during discovery. Audits always run one at a time.
	DefaultParallelism = 2

	// DefaultTimeout is the timeout of a single fetch during discovery.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies sitescore in HTTP requests.
	DefaultUserAgent = "sitescore/1.0 (+https://github.com/nao1215/sitescore)"

	// DefaultMaxBodySize limits the response body size read while crawling.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultLighthouseBinary is the auditor executable looked up in PATH.
	DefaultLighthouseBinary = "lighthouse"

	// DefaultChromeFlags are passed to Lighthouse through --chrome-flags.
	DefaultChromeFlags = "--headless"

	// DefaultCategory is the report category whose score is averaged.
	DefaultCategory = "performance"
)

// Config holds all configuration options for one sitescore run.
// It is populated from CLI flags and the configuration file and passed
// through the application explicitly.
type Config struct {
	// Target is the seed URL of the crawl.
	Target string

	// MaxPages is the capacity of the page registry.
	MaxPages int

	// Parallelism is the number of concurrent fetches during discovery.
	Parallelism int

	// Timeout is the timeout of a single fetch during discovery.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent while crawling.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int

	// External follows links to other sites.
	// By default only links on the seed's registrable domain are followed.
	External bool

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string

	// Headers are sent with every crawl request and passed to Lighthouse.
	Headers map[string]string

	// LighthouseBinary is the path or name of the lighthouse executable.
	LighthouseBinary string

	// ChromeFlags are passed to Lighthouse through --chrome-flags.
	ChromeFlags string

	// LighthouseArgs are extra command line arguments for Lighthouse.
	LighthouseArgs []string

	// Category is the report category whose score is averaged.
	// Matching is case-sensitive.
	Category string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .sitescore is searched for in the current directory,
	// the home directory and the XDG config directory.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file.
	SiteConfigs *File

	// JSONReport outputs the report as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport outputs the report as GitHub Flavored Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// SaveToDB stores the finished run in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:         DefaultMaxPages,
		Parallelism:      DefaultParallelism,
		Timeout:          DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		LighthouseBinary: DefaultLighthouseBinary,
		ChromeFlags:      DefaultChromeFlags,
		Category:         DefaultCategory,
		DBDir:            XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sitescore.
// On Linux: ~/.local/share/sitescore
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitescore.
// On Linux: ~/.config/sitescore
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}
	if _, err := url.Parse(c.Target); err != nil {
		return ErrInvalidTarget
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Parallelism <= 0 {
		return ErrInvalidParallelism
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Category == "" {
		return ErrEmptyCategory
	}

	if c.LighthouseBinary == "" {
		return ErrEmptyLighthouseBinary
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	return nil
}

// ApplySite overlays a site configuration onto c.
// Fields for which explicit reports true were set on the command line
// and keep their value. explicit may be nil.
func (c *Config) ApplySite(site SiteConfig, explicit func(field string) bool) {
	keep := func(field string) bool {
		return explicit != nil && explicit(field)
	}

	if site.MaxPages > 0 && !keep(FieldMaxPages) {
		c.MaxPages = site.MaxPages
	}
	if site.Parallelism > 0 && !keep(FieldParallelism) {
		c.Parallelism = site.Parallelism
	}
	if site.UserAgent != "" && !keep(FieldUserAgent) {
		c.UserAgent = site.UserAgent
	}
	if site.External != nil && !keep(FieldExternal) {
		c.External = *site.External
	}
	if len(site.IgnorePatterns) > 0 && !keep(FieldIgnore) {
		c.IgnorePatterns = site.IgnorePatterns
	}
	if site.ChromeFlags != "" && !keep(FieldChromeFlags) {
		c.ChromeFlags = site.ChromeFlags
	}
	if len(site.LighthouseArgs) > 0 {
		c.LighthouseArgs = append(c.LighthouseArgs, site.LighthouseArgs...)
	}
	if site.Category != "" && !keep(FieldCategory) {
		c.Category = site.Category
	}

	headers := site.RequestHeaders()
	if len(headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			if _, ok := c.Headers[k]; !ok {
				c.Headers[k] = v
			}
		}
	}
}

// Names of the fields ApplySite may leave untouched.
// They match the long CLI flag names.
const (
	FieldMaxPages    = "max-pages"
	FieldParallelism = "parallelism"
	FieldUserAgent   = "user-agent"
	FieldExternal    = "external"
	FieldIgnore      = "ignore"
	FieldChromeFlags = "chrome-flags"
	FieldCategory    = "category"
)
