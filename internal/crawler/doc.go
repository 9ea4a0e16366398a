// Package crawler discovers the pages of a website.
//
// # Components
//
//   - Normalize / IsIneligible: turn raw URLs into deduplication keys and
//     reject addresses that cannot be fetched (mailto:, tel:, bare fragments)
//   - Registry: the ordered, capacity-bounded set of discovered pages
//   - Scope: decides which extracted links are followed
//   - Scheduler: the crawl state machine (Idle, Discovering, Draining, Complete)
//   - CollyFetcher: the bounded-concurrency fetcher backed by colly
//
// # Concurrency
//
// Fetch results arrive on colly's worker goroutines. Every new address is
// admitted through Registry.Register, which performs check-and-insert under
// a single mutex, so the registry never holds more than its capacity.
//
// # Usage
//
//	registry := crawler.NewRegistry(10)
//	sched := crawler.NewScheduler(registry, crawler.Factory(crawler.WithParallelism(2)))
//	if err := sched.Crawl("https://example.com"); err != nil {
//		return err
//	}
//	for page := range registry.All() {
//		fmt.Println(page.Key)
//	}
package crawler
