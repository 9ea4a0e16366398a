// Package main provides the entry point for the sitescore CLI.
//
// sitescore crawls a website up to a page limit, audits every discovered
// page with Lighthouse and reports the average performance score.
//
// Usage:
//
//	sitescore https://example.com
//	sitescore history https://example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
