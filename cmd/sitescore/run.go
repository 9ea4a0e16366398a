package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nao1215/sitescore/internal/audit"
	"github.com/nao1215/sitescore/internal/config"
	"github.com/nao1215/sitescore/internal/crawler"
	"github.com/nao1215/sitescore/internal/database"
	"github.com/nao1215/sitescore/internal/log"
	"github.com/nao1215/sitescore/internal/model"
	"github.com/nao1215/sitescore/internal/pipeline"
	"github.com/nao1215/sitescore/internal/report"
	"github.com/spf13/cobra"
)

// errInterrupted is returned after a run was cut short by a signal.
// The partial report has already been written when it is returned.
var errInterrupted = errors.New("interrupted: the report holds partial results")

// runAuditCmd executes a crawl and audit of the URL argument.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoTarget) {
			return fmt.Errorf("%w (usage: %s)", err, cmd.UseLine())
		}
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	if logJSON, _ := cmd.Flags().GetBool("log-json"); logJSON {
		logger = log.NewJSONLogger(os.Stderr, cfg.Verbose)
	}
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRunner(cfg, logger, progressWriter(cfg)).run(ctx)
}

// progressWriter keeps stdout clean when a machine-readable report goes there.
func progressWriter(cfg *config.Config) io.Writer {
	if cfg.ReportFile == "" && (cfg.JSONReport || cfg.MarkdownReport) {
		return os.Stderr
	}
	return os.Stdout
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file and
// cobra command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxPages, err = flags.GetInt(config.FieldMaxPages); err != nil {
		return nil, err
	}
	if cfg.Parallelism, err = flags.GetInt(config.FieldParallelism); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString(config.FieldUserAgent); err != nil {
		return nil, err
	}
	if cfg.External, err = flags.GetBool(config.FieldExternal); err != nil {
		return nil, err
	}
	if cfg.IgnorePatterns, err = flags.GetStringSlice(config.FieldIgnore); err != nil {
		return nil, err
	}
	rawHeaders, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	if cfg.Headers, err = parseHeaders(rawHeaders); err != nil {
		return nil, err
	}
	if cfg.LighthouseBinary, err = flags.GetString("lighthouse"); err != nil {
		return nil, err
	}
	if cfg.ChromeFlags, err = flags.GetString(config.FieldChromeFlags); err != nil {
		return nil, err
	}
	if cfg.LighthouseArgs, err = flags.GetStringArray("lighthouse-arg"); err != nil {
		return nil, err
	}
	if cfg.Category, err = flags.GetString(config.FieldCategory); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if len(args) > 0 {
		cfg.Target = seedURL(args[0])
	}

	// Load site-specific configurations from config file.
	// An explicitly given path must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.ApplySite(cfg.SiteConfigs.GetSiteConfig(cfg.Target), flags.Changed)
	if cfg.SiteConfigs.Save {
		cfg.SaveToDB = true
	}
	switch {
	case dbDir != "":
		cfg.DBDir = dbDir
	case cfg.SiteConfigs.DBDir != "":
		cfg.DBDir = cfg.SiteConfigs.DBDir
	}

	return cfg, nil
}

// seedURL adds https:// to a bare host name such as "example.com".
// Ineligible values (mailto:, tel:, fragments) are passed through so the
// crawl reports them as an empty site.
func seedURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || crawler.IsIneligible(raw) || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// parseHeaders parses "Name: value" pairs.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// versioner is implemented by auditors that can report their version.
type versioner interface {
	Version(ctx context.Context) (string, error)
}

// runner executes one crawl-and-audit run.
type runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	out        io.Writer
	newFetcher crawler.FetcherFactory
	auditor    audit.Auditor
}

// newRunner creates a runner backed by colly and Lighthouse.
func newRunner(cfg *config.Config, logger *slog.Logger, out io.Writer) *runner {
	return &runner{
		cfg:    cfg,
		logger: logger,
		out:    out,
		newFetcher: crawler.Factory(
			crawler.WithParallelism(cfg.Parallelism),
			crawler.WithRequestTimeout(cfg.Timeout),
			crawler.WithUserAgent(cfg.UserAgent),
			crawler.WithMaxBodySize(cfg.MaxBodySize),
			crawler.WithHeaders(cfg.Headers),
		),
		auditor: audit.NewLighthouse(
			audit.WithBinary(cfg.LighthouseBinary),
			audit.WithChromeFlags(cfg.ChromeFlags),
			audit.WithExtraArgs(cfg.LighthouseArgs),
			audit.WithExtraHeaders(cfg.Headers),
			audit.WithLogger(logger),
		),
	}
}

// run crawls the target, audits every page, writes the report and
// optionally saves the run.
func (r *runner) run(ctx context.Context) error {
	if v, ok := r.auditor.(versioner); ok {
		version, err := v.Version(ctx)
		if err != nil {
			return fmt.Errorf("cannot run audits: %w", err)
		}
		r.logger.Debug("auditor found", "version", version)
	}

	result := model.NewAggregateReport(r.cfg.Target)

	registry, err := r.crawl(ctx)
	if err != nil {
		return err
	}

	r.audit(ctx, registry, result)

	if err := outputReport(r.cfg, result, r.out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if r.cfg.SaveToDB {
		if err := r.save(ctx, result); err != nil {
			r.logger.Error("failed to save run", "site", result.Site, "error", err)
		}
	}

	if result.Interrupted {
		return errInterrupted
	}
	return nil
}

// crawl discovers pages until the page limit is reached, the site is
// exhausted or ctx ends. An interrupted crawl returns the pages found so far.
func (r *runner) crawl(ctx context.Context) (*crawler.Registry, error) {
	fmt.Fprintln(r.out, "Beginning site crawl...")

	registry := crawler.NewRegistry(r.cfg.MaxPages)
	sched := crawler.NewScheduler(registry, r.newFetcher,
		crawler.WithSchedulerLogger(r.logger),
		crawler.WithScope(
			crawler.WithExternalLinks(r.cfg.External),
			crawler.WithIgnorePatterns(r.cfg.IgnorePatterns),
		),
		crawler.WithDiscoveryObserver(func(page *model.Page) {
			r.logger.Debug("page discovered", "key", page.Key, "url", page.Address)
		}),
	)
	err := sched.CrawlContext(ctx, r.cfg.Target)
	switch {
	case errors.Is(err, crawler.ErrCrawlInterrupted):
		fmt.Fprintf(r.out, "Crawl interrupted. %d page(s) found.\n", registry.Len())
		return registry, nil
	case err != nil:
		return nil, fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Fprintf(r.out, "Crawl Complete. %d page(s) crawled.\n", registry.Len())
	return registry, nil
}

// audit runs the audit pipeline over the registry in discovery order.
func (r *runner) audit(ctx context.Context, registry *crawler.Registry, result *model.AggregateReport) {
	fmt.Fprintln(r.out, "Preparing to run tests...")

	p := pipeline.New(r.auditor,
		pipeline.WithLogger(r.logger),
		pipeline.WithCategory(r.cfg.Category),
		pipeline.WithProgress(r.progress),
	)
	p.RunAll(ctx, result, registry.Pages())
}

// progress prints one line before and one line after each audit.
func (r *runner) progress(p pipeline.Progress) {
	if !p.Done {
		fmt.Fprintf(r.out, "Testing page (%d/%d)\n", p.Index, p.Total)
		return
	}
	switch {
	case p.Err != nil:
		fmt.Fprintf(r.out, "%s: audit failed\n", p.Page.Key)
	case p.Page.Scored():
		fmt.Fprintf(r.out, "%s: %.2f\n", p.Page.Key, p.Page.Score)
	default:
		fmt.Fprintf(r.out, "%s: no %s score\n", p.Page.Key, r.cfg.Category)
	}
}

// save stores the run in the history database.
func (r *runner) save(ctx context.Context, result *model.AggregateReport) error {
	db, err := database.Open(r.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Saving must not be skipped because the audit was interrupted.
	id, err := db.SaveRun(context.WithoutCancel(ctx), result)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved run #%d to %s\n", id, db.Path())
	r.logger.Info("run saved", "id", id, "site", result.Site)
	return nil
}

// outputReport writes the report in the requested format to stdout, or to
// the report file with a text copy on console.
func outputReport(cfg *config.Config, result *model.AggregateReport, console io.Writer) error {
	if cfg.ReportFile == "" {
		_, err := newReportWriter(cfg, os.Stdout).Write(result)
		return err
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := report.NewMultiWriter(
		newReportWriter(cfg, f),
		report.NewSimpleWriter(console, report.WithVerbose(cfg.Verbose)),
	)
	_, err = w.Write(result)
	return err
}

// newReportWriter picks the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
