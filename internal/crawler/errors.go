package crawler

import "errors"

var (
	// ErrInvalidTransition is returned when a scheduler event arrives in a
	// state that does not accept it, e.g. Start on a scheduler that already ran.
	ErrInvalidTransition = errors.New("invalid scheduler state transition")

	// ErrCrawlInterrupted is returned by CrawlContext when the context ends
	// before the frontier drains. The registry keeps the pages found so far.
	ErrCrawlInterrupted = errors.New("crawl interrupted")
)
