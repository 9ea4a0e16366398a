package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitescore/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AggregateReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AggregateReport) {
	md.H1("SiteScore Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.Site + "`"},
			{"Audit Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Crawled", strconv.Itoa(report.Total)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on report state.
func statusText(report *model.AggregateReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeSummary writes the average, the rating distribution and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AggregateReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"**Average Score**", "**" + report.AverageString() + "**"},
			{"Scored", strconv.Itoa(report.Completed)},
			{"Failed", strconv.Itoa(report.Failed)},
			{"Unscored", strconv.Itoa(report.Unscored)},
		},
	})
	md.PlainText("")

	if report.Scored() {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of page ratings.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.AggregateReport) {
	counts := make(map[Rating]uint64)
	for _, p := range report.Pages {
		if p.Scored() {
			counts[RatingOf(p.Score)]++
		}
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Performance Ratings"),
		piechart.WithShowData(true),
	)
	for _, r := range []Rating{RatingGood, RatingNeedsImprovement, RatingPoor} {
		if counts[r] > 0 {
			chart.LabelAndIntValue(string(r), counts[r])
		}
	}
	if report.Failed > 0 {
		chart.LabelAndIntValue("failed", uint64(report.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert that matches the outcome of the run.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.AggregateReport) {
	switch {
	case !report.Scored():
		md.Cautionf("No pages scored. %d page(s) crawled, %d audit(s) failed.", report.Total, report.Failed)
	case report.Interrupted:
		md.Importantf("The run was interrupted. The average covers %d of %d page(s).", report.Completed, report.Total)
	case report.Failed > 0:
		md.Warningf("%d audit(s) failed and are excluded from the average.", report.Failed)
	case RatingOf(report.Average) == RatingPoor:
		md.Note("The average performance score is poor.")
	default:
		md.Tip("Every crawled page was audited.")
	}
	md.PlainText("")
}

// writePages writes a table with one row per page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.AggregateReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Pages))
	for i, p := range report.Pages {
		score, rating := "-", "-"
		switch {
		case p.Scored():
			score = strconv.FormatFloat(p.Score, 'f', 2, 64)
			rating = string(RatingOf(p.Score))
		case p.Failed():
			rating = "❌ failed"
		case p.AuditCompleted:
			rating = "no score"
		default:
			rating = "not audited"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			"`" + truncateString(p.Key, 60) + "`",
			score,
			rating,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Page", "Score", "Rating"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the audit error of each failed page.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.AggregateReport) {
	failed := report.FailedPages()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Audits")
	md.PlainText("")
	for _, p := range failed {
		md.Details(p.Key, p.AuditError)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitescore](https://github.com/nao1215/sitescore)*")
}
