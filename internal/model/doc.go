// Package model defines the core data structures used throughout SiteScore.
//
// This package contains the following main types:
//   - Page: A discovered page and, after auditing, its score
//   - AuditReport: The structured output of one performance audit
//   - AggregateReport: The result of a whole run, including the average score
//
// Multiple packages (crawler, pipeline, report, database) share these types,
// so they live in their own package to avoid import cycles.
//
// The models serialize to JSON for report output and database storage.
package model
