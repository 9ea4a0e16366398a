// Package pipeline runs the audit phase of a crawl.
//
// Pages are audited one at a time in discovery order. A failed audit is
// recorded on its page and logged as a warning, and the pipeline moves on
// to the next page. Cancellation is checked between pages; an interrupted
// run still returns the aggregate of the pages audited so far.
package pipeline
