// Package log provides the slog setup of sitescore.
//
// Crawled URLs end up in log output, and they may carry credentials in
// their query strings. The RedactingHandler masks such values before
// they reach the underlying handler:
//   - attributes whose key names a secret (cookie, authorization, token, ...)
//   - string values that look like a secret (JWT, bearer or basic credentials)
//   - sensitive query parameters of URL values (?token=..., ?api_key=...)
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Warn("audit failed", "url", "https://example.com/?token=abc")
//	// url=https://example.com/?token=***REDACTED***
package log
