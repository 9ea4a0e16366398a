package main

import (
	"fmt"
	"os"

	"github.com/nao1215/sitescore/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitescore.
// Invoked with a URL it runs a crawl and audit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitescore <url>",
		Short: "Crawl a website and report its average Lighthouse performance score",
		Long: `sitescore discovers the pages of a website, runs a Lighthouse performance
audit on each of them, one at a time, and reports the average score.

Discovery stops when the page limit is reached or no unvisited links remain.
Pages whose audit fails are listed in the report but left out of the average.

Examples:
  # Audit up to 10 pages of a site
  sitescore https://example.com

  # Audit up to 25 pages and write a Markdown report
  sitescore -p 25 -m -o report.md https://example.com

  # Skip the blog and keep the run for 'sitescore history'
  sitescore --ignore "/blog/*" --save https://example.com

Requires the lighthouse CLI (npm install -g lighthouse) and Chrome.`,
		Version:       getVersion(),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAuditCmd,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")

	// Crawl flags
	cmd.Flags().IntP(config.FieldMaxPages, "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl and audit")
	cmd.Flags().IntP(config.FieldParallelism, "n", config.DefaultParallelism,
		"Number of pages fetched at the same time during discovery")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each request during discovery")
	cmd.Flags().String(config.FieldUserAgent, config.DefaultUserAgent,
		"User-Agent header sent while crawling")
	cmd.Flags().Bool(config.FieldExternal, false,
		"Follow links to other sites")
	cmd.Flags().StringSlice(config.FieldIgnore, nil,
		"URL path patterns to skip (e.g. \"/admin/*\", \"*.pdf\")")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra request header \"Name: value\" for crawling and auditing (repeatable)")

	// Audit flags
	cmd.Flags().String("lighthouse", config.DefaultLighthouseBinary,
		"Path of the lighthouse executable")
	cmd.Flags().String(config.FieldChromeFlags, config.DefaultChromeFlags,
		"Flags passed to Chrome through Lighthouse")
	cmd.Flags().StringArray("lighthouse-arg", nil,
		"Extra argument for Lighthouse (repeatable)")
	cmd.Flags().String(config.FieldCategory, config.DefaultCategory,
		"Lighthouse category whose score is averaged")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitescore in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("save", false,
		"Save the run to the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
