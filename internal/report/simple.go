package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/sitescore/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// printer formats numbers for the configured language.
	printer *message.Printer

	// verbose adds the audit error of each failed page.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage sets the language used to format numbers.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AggregateReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writePages(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AggregateReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                         SITESCORE REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	sb.WriteString(w.printer.Sprintf("Site:           %s\n", report.Site))
	sb.WriteString(w.printer.Sprintf("Audit Date:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(w.printer.Sprintf("Pages Crawled:  %d\n", report.Total))
	if d := report.Duration(); d > 0 {
		sb.WriteString(w.printer.Sprintf("Duration:       %s\n", d.Round(time.Second)))
	}

	if report.Interrupted {
		sb.WriteString("Status:         INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

// writePages writes one line per page in discovery order.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.AggregateReport) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("PAGE SCORES\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	if len(report.Pages) == 0 {
		sb.WriteString("  No pages were crawled.\n\n")
		return
	}

	for _, p := range report.Pages {
		key := truncateString(p.Key, 48)
		switch {
		case p.Scored():
			sb.WriteString(w.printer.Sprintf("  %-48s %5.2f  %s\n", key, p.Score, RatingOf(p.Score)))
		case p.Failed():
			sb.WriteString(w.printer.Sprintf("  %-48s FAILED\n", key))
			if w.verbose {
				sb.WriteString(w.printer.Sprintf("      %s\n", p.AuditError))
			}
		case p.AuditCompleted:
			sb.WriteString(w.printer.Sprintf("  %-48s no score\n", key))
		default:
			sb.WriteString(w.printer.Sprintf("  %-48s not audited\n", key))
		}
	}
	sb.WriteString("\n")
}

// writeSummary writes the totals and the average score.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.AggregateReport) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	sb.WriteString(w.printer.Sprintf("  Scored:   %d of %d\n", report.Completed, report.Total))
	sb.WriteString(w.printer.Sprintf("  Failed:   %d\n", report.Failed))
	sb.WriteString(w.printer.Sprintf("  Unscored: %d\n", report.Unscored))
	if lowest := report.Lowest(); lowest != nil {
		sb.WriteString(w.printer.Sprintf("  Lowest:   %s (%.2f)\n", lowest.Key, lowest.Score))
	}
	if highest := report.Highest(); highest != nil {
		sb.WriteString(w.printer.Sprintf("  Highest:  %s (%.2f)\n", highest.Key, highest.Score))
	}
	sb.WriteString("\n")

	sb.WriteString("Average Score: ")
	sb.WriteString(report.AverageString())
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitescore\n")
	sb.WriteString("https://github.com/nao1215/sitescore\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
