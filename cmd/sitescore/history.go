package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitescore/internal/config"
	"github.com/nao1215/sitescore/internal/crawler"
	"github.com/nao1215/sitescore/internal/database"
	"github.com/nao1215/sitescore/internal/model"
)

// Trend directions between the two newest scored runs.
const (
	trendImproved  = "improved"
	trendWorsened  = "worsened"
	trendUnchanged = "unchanged"
	trendUnknown   = "unknown"
)

// NewHistoryCmd creates the history command.
// It reads runs saved with --save from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show saved runs and the score trend of a site",
		Long: `History lists the runs of a site saved with --save, newest first, with
the average score of each run and its change against the run before.

Examples:
  # List saved runs of a site
  sitescore history https://example.com

  # Show the score history of one page
  sitescore history --page https://example.com/about https://example.com

  # Print a saved run as a full report
  sitescore history --id 3

  # List all sites in the database
  sitescore history --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites in the database")
	cmd.Flags().Int64P("id", "i", 0,
		"Print the saved run with this ID as a report")
	cmd.Flags().String("page", "",
		"Show the score history of a single page")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSites, err := cmd.Flags().GetBool("list-sites")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	pageURL, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate arguments before opening the database.
	var site string
	if !listSites && runID == 0 {
		if len(args) == 0 {
			return errors.New("URL is required (use --list-sites to see saved sites)")
		}
		site = seedURL(args[0])
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case listSites:
		return listSavedSites(ctx, out, db)
	case runID > 0:
		cfg := &config.Config{JSONReport: jsonOutput, MarkdownReport: markdownOutput}
		return showRun(ctx, out, db, cfg, runID)
	case pageURL != "":
		return showPageHistory(ctx, out, db, site, crawler.Normalize(seedURL(pageURL)), jsonOutput)
	}

	history, err := buildHistory(ctx, db, site)
	if err != nil {
		return err
	}
	switch {
	case jsonOutput:
		return outputHistoryJSON(out, history)
	case markdownOutput:
		return outputHistoryMarkdown(out, history)
	default:
		return outputHistoryText(out, history)
	}
}

// listSavedSites lists all sites with at least one saved run.
func listSavedSites(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return err
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No saved runs found in the database.")
		fmt.Fprintln(out, "\nUse 'sitescore --save <url>' to save a run.")
		return nil
	}

	fmt.Fprintf(out, "Saved sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
	fmt.Fprintln(out, "\nUse 'sitescore history <url>' to see the runs of a site.")
	return nil
}

// showRun prints a saved run with the report writers.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, cfg *config.Config, id int64) error {
	run, err := db.GetRunByID(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run with ID %d not found", id)
	}
	_, err = newReportWriter(cfg, out).Write(run)
	return err
}

// showPageHistory prints the scores of one page across runs.
func showPageHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, site, key string, jsonOutput bool) error {
	scores, err := db.GetPageHistory(ctx, site, key)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return fmt.Errorf("no saved scores for page %s of %s", key, site)
	}

	if jsonOutput {
		type entry struct {
			RunID      int64    `json:"run_id"`
			StartedAt  string   `json:"started_at"`
			Score      *float64 `json:"score"`
			AuditError string   `json:"audit_error,omitempty"`
		}
		entries := make([]entry, 0, len(scores))
		for _, s := range scores {
			e := entry{RunID: s.RunID, StartedAt: s.StartedAt.Format(timeLayout), AuditError: s.AuditError}
			if s.Score != model.NoScore {
				score := s.Score
				e.Score = &score
			}
			entries = append(entries, e)
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	fmt.Fprintf(out, "Score history for %s (%d runs):\n\n", key, len(scores))
	fmt.Fprintf(out, "  %-6s  %-20s  %s\n", "Run", "Date", "Score")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 40))
	for _, s := range scores {
		score := "no score"
		switch {
		case s.AuditError != "":
			score = "FAILED"
		case s.Score != model.NoScore:
			score = strconv.FormatFloat(s.Score, 'f', 2, 64)
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %s\n", s.RunID, s.StartedAt.Format(timeLayout), score)
	}
	return nil
}

const timeLayout = "2006-01-02 15:04:05"

// HistoryResult is the run history of a site.
type HistoryResult struct {
	// Site is the seed URL of the runs.
	Site string `json:"site"`

	// Runs are the saved runs, newest first.
	Runs []HistoryEntry `json:"runs"`

	// Trend compares the two newest scored runs.
	Trend string `json:"trend"`
}

// HistoryEntry is one run in a HistoryResult.
type HistoryEntry struct {
	ID          int64    `json:"id"`
	StartedAt   string   `json:"started_at"`
	Total       int      `json:"total"`
	Completed   int      `json:"completed"`
	Failed      int      `json:"failed"`
	Average     *float64 `json:"average"`
	Change      *float64 `json:"change"`
	Interrupted bool     `json:"interrupted"`
}

// buildHistory loads the runs of a site and computes the changes.
func buildHistory(ctx context.Context, db *database.HistoryDB, site string) (*HistoryResult, error) {
	runs, err := db.GetRunHistory(ctx, site)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no saved runs found for %s (use 'sitescore --save %s' first)", site, site)
	}
	return newHistoryResult(site, runs), nil
}

// newHistoryResult converts run metadata, newest first, into a HistoryResult.
// The change of a run is its average minus the average of the next older
// scored run.
func newHistoryResult(site string, runs []database.RunMetadata) *HistoryResult {
	result := &HistoryResult{
		Site:  site,
		Runs:  make([]HistoryEntry, len(runs)),
		Trend: trendUnknown,
	}

	for i, run := range runs {
		entry := HistoryEntry{
			ID:          run.ID,
			StartedAt:   run.StartedAt.Format(timeLayout),
			Total:       run.Total,
			Completed:   run.Completed,
			Failed:      run.Failed,
			Interrupted: run.Interrupted,
		}
		if run.Scored() {
			avg := run.Average
			entry.Average = &avg
			if prev, ok := previousScored(runs[i+1:]); ok {
				change := run.Average - prev
				entry.Change = &change
			}
		}
		result.Runs[i] = entry
	}

	for _, entry := range result.Runs {
		if entry.Average == nil {
			continue
		}
		if entry.Change != nil {
			result.Trend = trendOf(*entry.Change)
		}
		break
	}
	return result
}

// previousScored returns the average of the first scored run in older.
func previousScored(older []database.RunMetadata) (float64, bool) {
	for _, run := range older {
		if run.Scored() {
			return run.Average, true
		}
	}
	return math.NaN(), false
}

// trendOf maps a change to a direction. Changes below half a point
// of the two-decimal display are unchanged.
func trendOf(change float64) string {
	switch {
	case change >= 0.005:
		return trendImproved
	case change <= -0.005:
		return trendWorsened
	default:
		return trendUnchanged
	}
}

// outputHistoryJSON outputs the history in JSON format.
func outputHistoryJSON(out io.Writer, result *HistoryResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputHistoryMarkdown outputs the history in Markdown format.
func outputHistoryMarkdown(out io.Writer, result *HistoryResult) error {
	md := markdown.NewMarkdown(out)
	md.H1("Run History: " + result.Site)
	md.PlainText("")
	md.PlainTextf("**Trend:** %s", formatTrend(result.Trend))
	md.PlainText("")

	rows := make([][]string, 0, len(result.Runs))
	for _, e := range result.Runs {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.StartedAt,
			strconv.Itoa(e.Total),
			strconv.Itoa(e.Failed),
			formatAverage(e.Average),
			formatChange(e.Change),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Date", "Pages", "Failed", "Average", "Change"},
		Rows:   rows,
	})
	return md.Build()
}

// outputHistoryText outputs the history in human-readable text format.
func outputHistoryText(out io.Writer, result *HistoryResult) error {
	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", result.Site, len(result.Runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-6s  %-8s  %s\n", "ID", "Date", "Pages", "Failed", "Average", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 64))

	for _, e := range result.Runs {
		marker := ""
		if e.Interrupted {
			marker = " (interrupted)"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %-6d  %-8s  %s%s\n",
			e.ID, e.StartedAt, e.Total, e.Failed, formatAverage(e.Average), formatChange(e.Change), marker)
	}

	fmt.Fprintf(out, "\nTrend: %s\n", formatTrend(result.Trend))
	fmt.Fprintln(out, "\nUse 'sitescore history --id <id>' to print a saved run.")
	return nil
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return "-"
	}
	return strconv.FormatFloat(*avg, 'f', 2, 64)
}

// formatChange formats a score change with sign for display.
func formatChange(change *float64) string {
	if change == nil {
		return "-"
	}
	if trendOf(*change) == trendUnchanged {
		return "0.00"
	}
	return fmt.Sprintf("%+.2f", *change)
}

// formatTrend formats the trend direction for display.
func formatTrend(trend string) string {
	switch trend {
	case trendImproved:
		return "IMPROVED (average increased)"
	case trendWorsened:
		return "WORSENED (average decreased)"
	case trendUnchanged:
		return "UNCHANGED"
	default:
		return "not enough scored runs"
	}
}
