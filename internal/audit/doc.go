// Package audit runs performance audits on single pages.
//
// The Auditor interface is what the audit pipeline depends on. Lighthouse
// implements it by running the lighthouse CLI as a subprocess. Each call
// writes the JSON report to its own temporary file, which is removed before
// Audit returns on every path, including failures and cancellation.
//
// # Report formats
//
// ParseReport understands both the current Lighthouse layout, where
// "categories" is an object keyed by category id with scores in [0, 1],
// and the legacy layout, where "reportCategories" is a list with scores in
// [0, 100]. Legacy scores are scaled to [0, 1]. A category whose score is
// null is treated as absent.
package audit
