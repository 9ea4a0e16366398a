package crawler

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	// DefaultParallelism is the default number of concurrent fetches.
	DefaultParallelism = 2

	// DefaultUserAgent identifies the crawler to web servers.
	DefaultUserAgent = "sitescore (+https://github.com/nao1215/sitescore)"

	// DefaultMaxBodySize limits the size of a fetched page.
	DefaultMaxBodySize = 10 * 1024 * 1024

	requestedKey = "sitescore.requested"
	linksKey     = "sitescore.links"
)

// CollyFetcher is a Fetcher backed by an asynchronous colly collector.
// Anchor targets are extracted from every HTML page and resolved against
// the page URL.
type CollyFetcher struct {
	collector   *colly.Collector
	handler     FetchHandler
	parallelism int
	timeout     time.Duration
	userAgent   string
	maxBodySize int
	headers     map[string]string
}

// FetcherOption configures a CollyFetcher.
type FetcherOption func(*CollyFetcher)

// WithParallelism sets the maximum number of concurrent fetches.
func WithParallelism(n int) FetcherOption {
	return func(f *CollyFetcher) {
		f.parallelism = n
	}
}

// WithRequestTimeout sets the timeout of a single fetch.
func WithRequestTimeout(d time.Duration) FetcherOption {
	return func(f *CollyFetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *CollyFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize limits the number of bytes read from a response.
func WithMaxBodySize(size int) FetcherOption {
	return func(f *CollyFetcher) {
		f.maxBodySize = size
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *CollyFetcher) {
		f.headers = headers
	}
}

// NewCollyFetcher creates a fetcher that reports every fetched page to handler.
func NewCollyFetcher(handler FetchHandler, opts ...FetcherOption) *CollyFetcher {
	f := &CollyFetcher{
		handler:     handler,
		parallelism: DefaultParallelism,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.parallelism < 1 {
		f.parallelism = 1
	}

	c := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(f.userAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.MaxBodySize = f.maxBodySize
	if f.timeout > 0 {
		c.SetRequestTimeout(f.timeout)
	}
	// DomainGlob "*" always matches, so Limit cannot fail here.
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.parallelism,
	})

	c.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(requestedKey, r.URL.String())
		for k, v := range f.headers {
			r.Headers.Set(k, v)
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		links := make([]string, 0)
		e.DOM.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if link := e.Request.AbsoluteURL(href); link != "" {
				links = append(links, link)
			}
		})
		e.Request.Ctx.Put(linksKey, links)
	})

	c.OnScraped(func(r *colly.Response) {
		links, _ := r.Ctx.GetAny(linksKey).([]string)
		f.handler(FetchResult{
			Requested: requested(r.Request),
			Resolved:  r.Request.URL.String(),
			Links:     links,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		f.handler(FetchResult{
			Requested: requested(r.Request),
			Resolved:  r.Request.URL.String(),
			Err:       err,
		})
	})

	f.collector = c
	return f
}

// Factory returns a FetcherFactory that builds CollyFetchers with opts.
func Factory(opts ...FetcherOption) FetcherFactory {
	return func(handler FetchHandler) Fetcher {
		return NewCollyFetcher(handler, opts...)
	}
}

// Fetch queues the URL. It returns immediately.
func (f *CollyFetcher) Fetch(rawURL string) error {
	return f.collector.Visit(rawURL)
}

// Wait blocks until every queued and in-flight fetch has finished.
func (f *CollyFetcher) Wait() {
	f.collector.Wait()
}

func requested(r *colly.Request) string {
	if v := r.Ctx.Get(requestedKey); v != "" {
		return v
	}
	return r.URL.String()
}
