// Package report writes aggregate audit reports.
//
// Writers for each output format:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with a score chart
//
// Writers implement the Writer interface and can be combined with MultiWriter.
package report
